package storage

import (
	"context"

	"github.com/xbedrock/go-xgate/pkg/interfaces"
	"github.com/xbedrock/go-xgate/pkg/types"
)

var _ interfaces.SessionStore = NopStore{}

// NopStore 丢弃所有记录的存储
type NopStore struct{}

// Save 丢弃记录
func (NopStore) Save(context.Context, types.SessionRecord) error { return nil }

// Load 总是返回未找到
func (NopStore) Load(context.Context, types.Identity) (types.SessionRecord, bool, error) {
	return types.SessionRecord{}, false, nil
}

// Delete 空操作
func (NopStore) Delete(context.Context, types.Identity) error { return nil }

// List 返回空列表
func (NopStore) List(context.Context, int) ([]types.SessionRecord, error) { return nil, nil }
