package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
//                              Identity 测试
// ============================================================================

func TestParseIdentity(t *testing.T) {
	// 空输入
	_, err := ParseIdentity("   ")
	assert.ErrorIs(t, err, ErrEmptyIdentity)

	// 大写 UUID 规范化为小写
	id, err := ParseIdentity(" 6F9619FF-8B86-D011-B42D-00C04FC964FF ")
	require.NoError(t, err)
	assert.Equal(t, Identity("6f9619ff-8b86-d011-b42d-00c04fc964ff"), id)

	// 非 UUID 原样保留
	id, err = ParseIdentity("Steve")
	require.NoError(t, err)
	assert.Equal(t, Identity("Steve"), id)

	t.Log("✅ ParseIdentity 规范化正确")
}

func TestIdentity_ShortStringAndEmpty(t *testing.T) {
	assert.Equal(t, "abc", Identity("abc").ShortString())
	assert.Equal(t, "6f9619ff", Identity("6f9619ff-8b86-d011-b42d-00c04fc964ff").ShortString())
	assert.True(t, Identity("").IsEmpty())
	assert.False(t, NewIdentity().IsEmpty())
	assert.NotEqual(t, NewIdentity(), NewIdentity())

	t.Log("✅ Identity 辅助方法正确")
}

// ============================================================================
//                              Decision / Verdict 测试
// ============================================================================

func TestDecision_Helpers(t *testing.T) {
	accepted := Decision{Outcome: OutcomeAccepted}
	queued := Decision{Outcome: OutcomeQueued, Position: 3, QueueSize: 50}
	rejected := Decision{Outcome: OutcomeRejected, Reason: ReasonQueueFull}

	assert.True(t, accepted.Accepted())
	assert.True(t, queued.Queued())
	assert.True(t, rejected.Rejected())
	assert.False(t, rejected.Accepted())

	assert.Equal(t, "accepted", accepted.String())
	assert.Equal(t, "queued(3/50)", queued.String())
	assert.Equal(t, "rejected(queue_full)", rejected.String())

	t.Log("✅ Decision 辅助方法正确")
}

func TestDecision_JSON(t *testing.T) {
	data, err := json.Marshal(Decision{Outcome: OutcomeRejected, Reason: ReasonThrottled})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"outcome":"rejected"`)
	assert.Contains(t, string(data), `"reason":"throttled"`)

	t.Log("✅ Decision JSON 使用文本枚举")
}

func TestVerdict(t *testing.T) {
	pass := Pass()
	assert.True(t, pass.IsPass())
	assert.Equal(t, "pass", pass.String())

	drop := Verdict{Action: ActionDrop, Violations: []Category{CategoryPacketRate}}
	assert.True(t, drop.IsDrop())
	assert.Equal(t, "drop", drop.String())

	kick := Verdict{Action: ActionKick, Reason: CategoryOversized}
	assert.True(t, kick.IsKick())
	assert.Equal(t, "kick(Oversized)", kick.String())

	t.Log("✅ Verdict 辅助方法正确")
}

func TestEnumStrings(t *testing.T) {
	reasons := map[RejectReason]string{
		ReasonNone:            "none",
		ReasonTooManyAttempts: "too_many_attempts",
		ReasonThrottled:       "throttled",
		ReasonQueueFull:       "queue_full",
		ReasonInvalidAddress:  "invalid_address",
		ReasonUnavailable:     "unavailable",
		ReasonInvalidIdentity: "invalid_identity",
		RejectReason(99):      "unknown",
	}
	for r, want := range reasons {
		assert.Equal(t, want, r.String())
		text, err := r.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, want, string(text))
	}

	assert.Equal(t, "kick", ActionKick.String())
	assert.Equal(t, "unknown", Action(7).String())
	assert.Equal(t, "unknown", Outcome(7).String())
	assert.Len(t, Categories, 3)

	t.Log("✅ 枚举字符串正确")
}

// ============================================================================
//                              Session 测试
// ============================================================================

func TestDeviceInfo_Normalize(t *testing.T) {
	assert.Equal(t, UnknownDeviceInfo(), DeviceInfo{}.Normalize())

	d := DeviceInfo{Model: "iPhone", Language: "zh_CN"}.Normalize()
	assert.Equal(t, "iPhone", d.Model)
	assert.Equal(t, "zh_CN", d.Language)
	assert.Equal(t, UnknownDeviceValue, d.OS)

	t.Log("✅ DeviceInfo 缺省值填充正确")
}

func TestSession_Duration(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Zero(t, Session{}.Duration(start))

	s := Session{ConnectionTime: start}
	assert.Equal(t, 5*time.Minute, s.Duration(start.Add(5*time.Minute)))
	assert.Zero(t, s.Duration(start.Add(-time.Second)))

	t.Log("✅ Session.Duration 正确")
}

func TestSessionRecord_Merge(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := Session{
		Identity:       "p1",
		DisplayName:    "Alex",
		Address:        "10.0.0.1",
		ConnectionTime: start,
		Position:       Position{World: "world", X: 1},
	}

	rec := SessionRecord{}.Merge(s, start.Add(time.Hour))
	rec = rec.Merge(s, start.Add(30*time.Minute))

	assert.Equal(t, Identity("p1"), rec.Identity)
	assert.Equal(t, "10.0.0.1", rec.LastAddress)
	assert.Equal(t, 90*time.Minute, rec.TotalPlayTime)
	assert.Equal(t, 2, rec.Sessions)
	assert.Equal(t, start.Add(30*time.Minute), rec.LastLogout)
	assert.Equal(t, "world", rec.LastPosition.World)

	t.Log("✅ SessionRecord 累计时长正确")
}
