// Package metrics 提供 Prometheus 注册表与指标注册工具
//
// 组件的指标结构体（gate.Metrics、registry.Metrics 等）都是 nil 安全的：
// 在 nil 指针上调用记录方法是空操作，测试中可以直接传 nil。
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Namespace 所有 xgate 指标的命名空间
const Namespace = "xgate"

// NewRegistry 创建私有注册表，附带 Go 运行时与进程指标
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: Namespace}),
	)
	return reg
}

// RegisterOrReuse 注册 collector
//
// 已注册时返回注册表中已有的 collector，使重启后的组件继续导出同一组指标。
// 其他注册错误直接 panic。
func RegisterOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
