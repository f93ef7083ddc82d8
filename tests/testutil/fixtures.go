// Package testutil 提供测试辅助工具
package testutil

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/xbedrock/go-xgate/pkg/types"
)

// 测试数据固件
//
// 提供测试中常用的时间点与请求构造，确保测试一致性。

var (
	// OffPeak 非高峰时刻（UTC 10:00）
	OffPeak = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	// Peak 高峰时刻（UTC 18:00，默认高峰小时 16-22）
	Peak = time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
)

// NewMockClock 创建停在指定时刻的虚拟时钟
func NewMockClock(at time.Time) *clock.Mock {
	mock := clock.NewMock()
	mock.Set(at)
	return mock
}

// Request 构造连接请求
func Request(identity, addr string) types.ConnectionRequest {
	return types.ConnectionRequest{
		Identity:    types.Identity(identity),
		DisplayName: identity,
		Address:     addr,
	}
}

// AddrN 返回第 i 个互不相同的 IPv4 地址
func AddrN(i int) string {
	return fmt.Sprintf("10.%d.%d.%d", i/62500, (i/250)%250, i%250+1)
}
