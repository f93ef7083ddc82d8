package gate

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/xbedrock/go-xgate/config"
	"github.com/xbedrock/go-xgate/internal/core/eventbus"
	"github.com/xbedrock/go-xgate/internal/core/scheduler"
)

// TestModule_DrainScheduled 测试模块注册排空任务
func TestModule_DrainScheduled(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(offPeak)

	cfg := config.NewConfig()
	cfg.Gate = cfg.Gate.
		WithMaxConnectionsPerSecond(1).
		WithTimezone("UTC")

	var (
		g     *Gate
		sched *scheduler.Scheduler
	)
	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Provide(func() clock.Clock { return mock }),
		eventbus.Module(),
		Module(),
		scheduler.Module(),
		fx.Populate(&g, &sched),
	)
	app.RequireStart()
	defer app.RequireStop()

	names := make([]string, 0, 2)
	for _, info := range sched.Tasks() {
		names = append(names, info.Name)
	}
	assert.ElementsMatch(t, []string{TaskDrain, TaskSweep}, names)

	require.True(t, g.Admit(req("a", addrN(0))).Accepted())
	require.True(t, g.Admit(req("b", addrN(1))).Queued())

	mock.Add(time.Second)
	assert.Eventually(t, func() bool { return g.QueueLen() == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, g.CurrentConnections())

	t.Log("✅ 模块排空任务测试通过")
}
