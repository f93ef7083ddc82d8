package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegisterOrReuse 测试重复注册时复用已有 collector
func TestRegisterOrReuse(t *testing.T) {
	reg := prometheus.NewRegistry()

	newCounter := func() prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "test_total",
			Help:      "test counter",
		})
	}

	c1 := RegisterOrReuse(reg, newCounter())
	c1.Inc()

	c2 := RegisterOrReuse(reg, newCounter())
	c2.Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(c1), "第二次注册应复用同一个 collector")

	// nil 注册表直接返回
	c3 := RegisterOrReuse[prometheus.Counter](nil, newCounter())
	require.NotNil(t, c3)

	t.Log("✅ RegisterOrReuse 测试通过")
}

// TestNewRegistry 测试默认注册表可采集
func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)

	t.Log("✅ NewRegistry 测试通过")
}
