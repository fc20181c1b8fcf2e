package gamma

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type setCall struct {
	output string
	preset Preset
}

type fakeDisplay struct {
	outputs    []string
	outputsErr error
	failOn     map[string]bool
	sets       []setCall
	enumerated int
}

func (f *fakeDisplay) Outputs(ctx context.Context) ([]string, error) {
	f.enumerated++
	return f.outputs, f.outputsErr
}

func (f *fakeDisplay) SetGamma(ctx context.Context, output string, p Preset) error {
	f.sets = append(f.sets, setCall{output: output, preset: p})
	if f.failOn[output] {
		return errors.New("BadMatch")
	}
	return nil
}

type recordingNotifier struct {
	presets []Preset
}

func (r *recordingNotifier) PresetApplied(ctx context.Context, p Preset) {
	r.presets = append(r.presets, p)
}

func TestApply_Idempotent(t *testing.T) {
	display := &fakeDisplay{outputs: []string{"eDP-1"}}
	c := NewController(display, testLogger())

	require.NoError(t, c.Apply(context.Background(), Night))
	require.NoError(t, c.Apply(context.Background(), Night))

	assert.Equal(t, []setCall{{"eDP-1", Night}}, display.sets)
	assert.Equal(t, Night, c.Current())
}

func TestApply_StartsNeutral(t *testing.T) {
	display := &fakeDisplay{outputs: []string{"eDP-1"}}
	c := NewController(display, testLogger())

	assert.Equal(t, Neutral, c.Current())
	require.NoError(t, c.Apply(context.Background(), Neutral))
	assert.Empty(t, display.sets)
}

func TestApply_AllDisplays(t *testing.T) {
	display := &fakeDisplay{outputs: []string{"eDP-1", "HDMI-1", "DP-2"}}
	notifier := &recordingNotifier{}
	c := NewController(display, testLogger())
	c.SetNotifier(notifier)

	require.NoError(t, c.Apply(context.Background(), Cloudy))

	assert.Len(t, display.sets, 3)
	for _, call := range display.sets {
		assert.Equal(t, Cloudy, call.preset)
	}
	assert.Equal(t, []Preset{Cloudy}, notifier.presets)
}

func TestApply_NoDisplaysLeavesStateUnchanged(t *testing.T) {
	display := &fakeDisplay{}
	notifier := &recordingNotifier{}
	c := NewController(display, testLogger())
	c.SetNotifier(notifier)

	err := c.Apply(context.Background(), Night)

	assert.True(t, errors.Is(err, ErrNoDisplays))
	assert.Equal(t, Neutral, c.Current())
	assert.Empty(t, notifier.presets)

	// Displays appear later: the change is attempted again
	display.outputs = []string{"eDP-1"}
	require.NoError(t, c.Apply(context.Background(), Night))
	assert.Equal(t, Night, c.Current())
}

func TestApply_UnchangedPresetStillReportsNoDisplays(t *testing.T) {
	display := &fakeDisplay{outputs: []string{"eDP-1"}}
	c := NewController(display, testLogger())
	require.NoError(t, c.Apply(context.Background(), Night))

	// Output unplugged
	display.outputs = nil
	err := c.Apply(context.Background(), Night)

	assert.ErrorIs(t, err, ErrNoDisplays)
	assert.Equal(t, 2, display.enumerated)
	assert.Len(t, display.sets, 1)
	assert.Equal(t, Night, c.Current())
}

func TestApply_EnumerationErrorLeavesStateUnchanged(t *testing.T) {
	display := &fakeDisplay{outputsErr: errors.New("Can't open display")}
	c := NewController(display, testLogger())

	assert.Error(t, c.Apply(context.Background(), Night))
	assert.Equal(t, Neutral, c.Current())
}

func TestApply_PartialFailureStillAdvances(t *testing.T) {
	display := &fakeDisplay{
		outputs: []string{"eDP-1", "HDMI-1"},
		failOn:  map[string]bool{"eDP-1": true},
	}
	c := NewController(display, testLogger())

	err := c.Apply(context.Background(), Night)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eDP-1")

	// Both displays were attempted and the preset is considered applied
	assert.Len(t, display.sets, 2)
	assert.Equal(t, Night, c.Current())

	// Not retried until the preset changes
	require.NoError(t, c.Apply(context.Background(), Night))
	assert.Len(t, display.sets, 2)
}

func TestReset_IgnoresTrackedState(t *testing.T) {
	display := &fakeDisplay{outputs: []string{"eDP-1", "HDMI-1"}}
	c := NewController(display, testLogger())

	require.NoError(t, c.Apply(context.Background(), Cloudy))
	display.sets = nil
	enumerated := display.enumerated

	require.NoError(t, c.Reset(context.Background()))

	assert.Equal(t, []setCall{{"eDP-1", Neutral}, {"HDMI-1", Neutral}}, display.sets)
	assert.Equal(t, enumerated+1, display.enumerated)
	assert.Equal(t, Neutral, c.Current())

	// Reset while already neutral still writes
	display.sets = nil
	require.NoError(t, c.Reset(context.Background()))
	assert.Len(t, display.sets, 2)
}

// blockingNotifier stalls like a publish to an unreachable broker
type blockingNotifier struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingNotifier) PresetApplied(ctx context.Context, p Preset) {
	close(b.entered)
	<-b.release
}

func TestReset_NotDelayedBySlowNotifier(t *testing.T) {
	display := &fakeDisplay{outputs: []string{"eDP-1", "HDMI-1"}}
	notifier := &blockingNotifier{entered: make(chan struct{}), release: make(chan struct{})}
	c := NewController(display, testLogger())
	c.SetNotifier(notifier)

	applied := make(chan error, 1)
	go func() {
		applied <- c.Apply(context.Background(), Night)
	}()
	<-notifier.entered

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, c.Reset(ctx))
	assert.Equal(t, Neutral, c.Current())

	close(notifier.release)
	require.NoError(t, <-applied)

	assert.Equal(t, []setCall{
		{"eDP-1", Night}, {"HDMI-1", Night},
		{"eDP-1", Neutral}, {"HDMI-1", Neutral},
	}, display.sets)
}

// slowDisplay holds the lock in SetGamma until told to continue
type slowDisplay struct {
	fakeDisplay
	entered chan struct{}
	release chan struct{}
	once    bool
}

func (s *slowDisplay) SetGamma(ctx context.Context, output string, p Preset) error {
	if !s.once {
		s.once = true
		close(s.entered)
		<-s.release
	}
	return s.fakeDisplay.SetGamma(ctx, output, p)
}

func TestResetWithin_BudgetStartsAfterLock(t *testing.T) {
	display := &slowDisplay{
		fakeDisplay: fakeDisplay{outputs: []string{"eDP-1"}},
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	c := NewController(display, testLogger())

	applied := make(chan error, 1)
	go func() {
		applied <- c.Apply(context.Background(), Cloudy)
	}()
	<-display.entered

	reset := make(chan error, 1)
	go func() {
		reset <- c.ResetWithin(context.Background(), 100*time.Millisecond)
	}()

	// Hold the lock for longer than the reset budget
	time.Sleep(250 * time.Millisecond)
	close(display.release)

	require.NoError(t, <-applied)
	require.NoError(t, <-reset)
	assert.Equal(t, Neutral, c.Current())
	assert.Equal(t, setCall{"eDP-1", Neutral}, display.sets[len(display.sets)-1])
}

func TestPresetGamma(t *testing.T) {
	assert.Equal(t, "1:1:1", Neutral.Gamma())
	assert.Equal(t, "1:0.9:0.8", Night.Gamma())
	assert.Equal(t, "1:0.95:0.85", Cloudy.Gamma())
}

type scriptedRunner struct {
	outputs map[string]string
	calls   []string
}

func (s *scriptedRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	s.calls = append(s.calls, line)
	return []byte(s.outputs[line]), nil
}

func (s *scriptedRunner) Available(name string) bool { return true }

func TestXrandrDisplay(t *testing.T) {
	runner := &scriptedRunner{outputs: map[string]string{
		"xrandr --query": `Screen 0: minimum 320 x 200, current 3840 x 1080, maximum 16384 x 16384
eDP-1 connected primary 1920x1080+0+0 (normal left inverted right x axis y axis) 309mm x 174mm
   1920x1080     60.01*+
HDMI-1 disconnected (normal left inverted right x axis y axis)
DP-1 connected 1920x1080+1920+0 (normal left inverted right x axis y axis) 527mm x 296mm
   1920x1080     60.00*+
`,
	}}
	x := NewXrandrDisplay(runner)

	outputs, err := x.Outputs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"eDP-1", "DP-1"}, outputs)

	require.NoError(t, x.SetGamma(context.Background(), "DP-1", Night))
	assert.Equal(t, "xrandr --output DP-1 --gamma 1:0.9:0.8", runner.calls[len(runner.calls)-1])
}

type fakeMQTT struct {
	connected bool
	topic     string
	retained  bool
	payload   []byte
}

func (f *fakeMQTT) Connect(ctx context.Context) error { return nil }
func (f *fakeMQTT) Disconnect()                       {}
func (f *fakeMQTT) IsConnected() bool                 { return f.connected }
func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.topic, f.retained, f.payload = topic, retained, payload
	return nil
}

func TestMQTTPublisher(t *testing.T) {
	client := &fakeMQTT{connected: true}
	p := NewMQTTPublisher(client, "workstation", "run-1", testLogger())
	p.now = func() time.Time { return time.Date(2026, 6, 1, 21, 0, 0, 0, time.UTC) }

	p.PresetApplied(context.Background(), Night)

	assert.Equal(t, "gammad/context/display/workstation", client.topic)
	assert.True(t, client.retained)

	var msg ContextMessage
	require.NoError(t, json.Unmarshal(client.payload, &msg))
	assert.Equal(t, "night", msg.Preset)
	assert.Equal(t, []float64{1.0, 0.9, 0.8}, msg.Gamma)
	assert.Equal(t, "run-1", msg.RunID)
	assert.Equal(t, "2026-06-01T21:00:00Z", msg.Timestamp)
}

func TestMQTTPublisher_SkipsWhenDisconnected(t *testing.T) {
	client := &fakeMQTT{}
	p := NewMQTTPublisher(client, "workstation", "run-1", testLogger())

	p.PresetApplied(context.Background(), Night)

	assert.Empty(t, client.topic)
}
