package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/browser/dom"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const formHTML = `
<html><body>
  <form>
    <input id="terms" type="checkbox">
    <a id="a" href="#">Toggle</a>
    <input id="b" type="text">
    <textarea id="notes"></textarea>
    <select id="s"><option>x</option></select>
  </form>
  <button id="dup" class="first">First</button>
  <button id="dup" class="second">Second</button>
</body></html>`

// sleepRecorder replaces real pauses and remembers what was requested.
type sleepRecorder struct {
	calls []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.calls = append(r.calls, d)
	return nil
}

func newTestExecutor(t *testing.T, page schemas.Page) (*Executor, *sleepRecorder) {
	t.Helper()
	rec := &sleepRecorder{}
	return New(page, zaptest.NewLogger(t), WithSleep(rec.sleep)), rec
}

func newFormPage(t *testing.T) *dom.Page {
	t.Helper()
	p, err := dom.NewPageFromString("https://example.com/form", formHTML)
	require.NoError(t, err)
	return p
}

func click(sel string) schemas.Action { return schemas.Action{Type: schemas.ActionClick, Selector: sel} }
func fill(sel, v string) schemas.Action {
	return schemas.Action{Type: schemas.ActionFill, Selector: sel, Value: schemas.StringPtr(v)}
}

func TestExecute_CheckboxClick(t *testing.T) {
	page := newFormPage(t)
	exec, _ := newTestExecutor(t, page)
	actions := []schemas.Action{click("#terms")}

	results := exec.Execute(context.Background(), actions)

	assert.Equal(t, []schemas.ActionResult{{Action: actions[0], Success: true}}, results)
	checked, err := page.IsChecked("#terms")
	require.NoError(t, err)
	assert.True(t, checked)
}

func TestExecute_MissingElementStopsBatch(t *testing.T) {
	page := newFormPage(t)
	exec, rec := newTestExecutor(t, page)
	actions := []schemas.Action{fill("#missing", "x"), click("#terms")}

	results := exec.Execute(context.Background(), actions)

	require.Len(t, results, 1)
	assert.Equal(t, schemas.ActionResult{Action: actions[0], Success: false, Error: "Element not found: #missing"}, results[0])
	checked, _ := page.IsChecked("#terms")
	assert.False(t, checked, "actions after a failure are never attempted")
	assert.Empty(t, rec.calls, "no delay after a failed action")
}

func TestExecute_ClickRemovesLaterTarget(t *testing.T) {
	page := newFormPage(t)
	require.NoError(t, page.OnClick("#a", func(p *dom.Page) {
		_, err := p.Remove("#b")
		require.NoError(t, err)
	}))
	exec, _ := newTestExecutor(t, page)
	actions := []schemas.Action{click("#a"), fill("#b", "v"), click("#terms")}

	results := exec.Execute(context.Background(), actions)

	assert.Equal(t, []schemas.ActionResult{
		{Action: actions[0], Success: true},
		{Action: actions[1], Success: false, Error: "Element not found: #b"},
	}, results)
}

func TestExecute_FillNonFillable(t *testing.T) {
	for _, sel := range []string{"#terms", "#s"} {
		exec, _ := newTestExecutor(t, newFormPage(t))
		results := exec.Execute(context.Background(), []schemas.Action{fill(sel, "x")})

		require.Len(t, results, 1)
		assert.False(t, results[0].Success)
		assert.Equal(t, "Element is not fillable: "+sel, results[0].Error)
	}
}

func TestExecute_FillDispatchesNotifications(t *testing.T) {
	page := newFormPage(t)
	exec, _ := newTestExecutor(t, page)

	results := exec.Execute(context.Background(), []schemas.Action{fill("#b", "hello"), fill("#notes", "n")})
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)

	v, err := page.ValueOf("#b")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)

	events := page.Events()
	require.Len(t, events, 4)
	assert.Equal(t, "input", events[0].Type)
	assert.Equal(t, "change", events[1].Type)
}

func TestExecute_FillWithoutValueClears(t *testing.T) {
	page := newFormPage(t)
	require.NoError(t, page.Fill(context.Background(), "#b", "old"))
	exec, _ := newTestExecutor(t, page)

	results := exec.Execute(context.Background(), []schemas.Action{{Type: schemas.ActionFill, Selector: "#b"}})
	require.True(t, results[0].Success)

	v, _ := page.ValueOf("#b")
	assert.Empty(t, v)
}

func TestExecute_UnknownActionType(t *testing.T) {
	exec, _ := newTestExecutor(t, newFormPage(t))
	actions := []schemas.Action{{Type: "scroll", Selector: "body"}, click("#terms")}

	results := exec.Execute(context.Background(), actions)

	require.Len(t, results, 1)
	assert.Equal(t, "Unknown action type: scroll", results[0].Error)
}

func TestExecute_WaitAndDelays(t *testing.T) {
	page := newFormPage(t)
	rec := &sleepRecorder{}
	exec := New(page, zaptest.NewLogger(t),
		WithSleep(rec.sleep),
		WithWaitDuration(2*time.Second),
		WithActionDelay(300*time.Millisecond),
	)

	results := exec.Execute(context.Background(), []schemas.Action{
		click("#terms"),
		{Type: schemas.ActionWait},
		fill("#b", "x"),
	})

	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Success)
	}
	// delay, wait, delay; nothing after the last action.
	assert.Equal(t, []time.Duration{300 * time.Millisecond, 2 * time.Second, 300 * time.Millisecond}, rec.calls)
}

func TestExecute_DefaultDurations(t *testing.T) {
	exec := New(newFormPage(t), zaptest.NewLogger(t))
	assert.Equal(t, time.Second, exec.waitDuration)
	assert.Equal(t, 500*time.Millisecond, exec.actionDelay)
}

func TestExecute_DuplicateIDResolvesFirstMatch(t *testing.T) {
	page := newFormPage(t)
	var clicked []string
	require.NoError(t, page.OnClick("button.first", func(*dom.Page) { clicked = append(clicked, "first") }))
	require.NoError(t, page.OnClick("button.second", func(*dom.Page) { clicked = append(clicked, "second") }))
	exec, _ := newTestExecutor(t, page)

	results := exec.Execute(context.Background(), []schemas.Action{click("#dup")})

	require.True(t, results[0].Success)
	assert.Equal(t, []string{"first"}, clicked)
}

func TestExecute_EmptyBatch(t *testing.T) {
	exec, rec := newTestExecutor(t, newFormPage(t))
	results := exec.Execute(context.Background(), nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Empty(t, rec.calls)
}

// panickyPage blows up on click and fails fill with a plain error.
type panickyPage struct {
	schemas.Page
}

func (panickyPage) Click(context.Context, string) error { panic("renderer crashed") }
func (panickyPage) Fill(context.Context, string, string) error {
	return errors.New("target closed")
}

func TestExecute_PanicBecomesFailure(t *testing.T) {
	exec, _ := newTestExecutor(t, panickyPage{})
	actions := []schemas.Action{click("#x"), click("#y")}

	results := exec.Execute(context.Background(), actions)

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, "renderer crashed", results[0].Error)
	assert.Equal(t, actions[0], results[0].Action)
}

func TestExecute_PageErrorMessagePassesThrough(t *testing.T) {
	exec, _ := newTestExecutor(t, panickyPage{})
	results := exec.Execute(context.Background(), []schemas.Action{fill("#x", "v")})
	require.Len(t, results, 1)
	assert.Equal(t, "target closed", results[0].Error)
}

func TestExecute_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec, _ := newTestExecutor(t, newFormPage(t))

	results := exec.Execute(ctx, []schemas.Action{click("#terms"), click("#terms")})
	require.Len(t, results, 1)
	assert.Equal(t, context.Canceled.Error(), results[0].Error)
}

func TestExecute_WaitInterruptedByCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := New(newFormPage(t), zaptest.NewLogger(t), WithWaitDuration(time.Hour), WithActionDelay(0))

	time.AfterFunc(50*time.Millisecond, cancel)
	start := time.Now()
	results := exec.Execute(ctx, []schemas.Action{click("#terms"), {Type: schemas.ActionWait}, click("#terms")})

	assert.Less(t, time.Since(start), 10*time.Second)
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, context.Canceled.Error(), results[1].Error)
}

// TestExecute_ResultLengthProperty checks len(results) <= len(actions), with
// equality exactly when every action succeeded.
func TestExecute_ResultLengthProperty(t *testing.T) {
	batches := [][]schemas.Action{
		{},
		{click("#terms")},
		{click("#terms"), fill("#b", "1"), {Type: schemas.ActionWait}},
		{click("#nope"), fill("#b", "1")},
		{fill("#b", "1"), fill("#terms", "x"), click("#a")},
		{click("#a"), {Type: "hover"}},
	}

	for _, batch := range batches {
		exec, _ := newTestExecutor(t, newFormPage(t))
		results := exec.Execute(context.Background(), batch)

		require.LessOrEqual(t, len(results), len(batch))
		failedBeforeEnd := false
		for i, r := range results {
			if !r.Success {
				assert.Equal(t, len(results)-1, i, "a failure is always the last result")
				failedBeforeEnd = i < len(batch)-1
			}
		}
		assert.Equal(t, failedBeforeEnd, len(results) < len(batch))
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	assert.NoError(t, sleepContext(context.Background(), 0))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
