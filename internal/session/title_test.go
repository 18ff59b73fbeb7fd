package session

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-ai/parley/internal/stream"
)

func TestTruncateTitle_ShortInputUnchanged(t *testing.T) {
	assert.Equal(t, "Fix the build", TruncateTitle("Fix the build", 50))
}

func TestTruncateTitle_CollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "Fix the build", TruncateTitle("  Fix \n\t the   build  ", 50))
}

func TestTruncateTitle_WordBoundary(t *testing.T) {
	input := "Please refactor the authentication middleware to support rotating tokens"
	title := TruncateTitle(input, 50)

	assert.True(t, strings.HasSuffix(title, "…"), "truncated titles end with an ellipsis, got %q", title)
	body := strings.TrimSuffix(title, "…")
	assert.True(t, strings.HasPrefix(input, body), "title must be a prefix of the input")
	assert.False(t, strings.HasSuffix(body, " "))
	// Cut lands on a word boundary: the next input rune is a space.
	assert.Equal(t, byte(' '), input[len(body)])
	assert.LessOrEqual(t, len([]rune(title)), 51)
}

func TestTruncateTitle_NoBoundaryPastThreshold(t *testing.T) {
	// A single long token has no word boundary past 60% of the limit,
	// so the cut is a hard truncation.
	input := strings.Repeat("a", 80)
	title := TruncateTitle(input, 50)
	assert.Equal(t, strings.Repeat("a", 50)+"…", title)
}

func TestTruncateTitle_EmptyInput(t *testing.T) {
	assert.Equal(t, "New Session", TruncateTitle("", 50))
	assert.Equal(t, "New Session", TruncateTitle("   \n\t ", 50))
}

func TestTruncateTitle_MultiByte(t *testing.T) {
	input := strings.Repeat("日", 60)
	title := TruncateTitle(input, 50)
	assert.Equal(t, strings.Repeat("日", 50)+"…", title)
}

func TestTruncateTitle_MultiByteBoundaryBeforeThreshold(t *testing.T) {
	// The only space sits at rune 20, before 60% of the limit. Rune and
	// byte positions diverge here; the cut must still be a hard
	// truncation at the limit, not a premature cut at the space.
	input := strings.Repeat("日", 20) + " " + strings.Repeat("a", 40)
	title := TruncateTitle(input, 50)
	assert.Equal(t, strings.Repeat("日", 20)+" "+strings.Repeat("a", 29)+"…", title)
	assert.Equal(t, 51, len([]rune(title)))
}

func TestTruncateTitle_MultiByteBoundaryPastThreshold(t *testing.T) {
	input := strings.Repeat("日", 35) + " " + strings.Repeat("日", 30)
	title := TruncateTitle(input, 50)
	assert.Equal(t, strings.Repeat("日", 35)+"…", title)
}

func TestCleanTitleArtifacts(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`"Quoted title"`, "Quoted title"},
		{`'Single quoted'`, "Single quoted"},
		{"“Curly quoted”", "Curly quoted"},
		{"«Guillemets»", "Guillemets"},
		{"「Brackets」", "Brackets"},
		{"Title: Fix the build", "Fix the build"},
		{"TITLE: Fix the build", "Fix the build"},
		{"First line\nSecond line", "First line"},
		{"\n\nFirst non-empty\nrest", "First non-empty"},
		{`Title: "Both label and quotes"`, "Both label and quotes"},
		{"Plain title", "Plain title"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, cleanTitleArtifacts(tc.in), "input %q", tc.in)
	}
}

func TestTitleGenerator_ModelAssisted(t *testing.T) {
	mock := &mockProvider{scripts: [][]*schema.Message{
		textScript("Fix the ", "flaky test"),
	}}
	gen := NewTitleGenerator(newMockRegistry(mock), 50)

	sess := Create("mock", "test-model")
	recorder := &stream.Recorder{}

	title := gen.Generate(context.Background(), &sess, "the test keeps failing", recorder.Record)
	assert.Equal(t, "Fix the flaky test", title)

	events := recorder.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "title-start", events[0].EventType())
	assert.Equal(t, "title-complete", events[len(events)-1].EventType())

	var deltas string
	for _, ev := range events {
		if d, ok := ev.(*stream.TitleDelta); ok {
			deltas += d.Text
		}
	}
	assert.Equal(t, "Fix the flaky test", deltas, "deltas reassemble the full title")
}

func TestTitleGenerator_FallbackOnProviderError(t *testing.T) {
	mock := &mockProvider{errs: []error{fmt.Errorf("provider down")}}
	gen := NewTitleGenerator(newMockRegistry(mock), 50)

	sess := Create("mock", "test-model")
	recorder := &stream.Recorder{}

	title := gen.Generate(context.Background(), &sess, "summarize the release notes", recorder.Record)
	assert.Equal(t, "summarize the release notes", title)

	events := recorder.Events()
	complete, ok := events[len(events)-1].(*stream.TitleComplete)
	require.True(t, ok)
	assert.Equal(t, title, complete.Title)
}

func TestTitleGenerator_FallbackOnEmptyModelOutput(t *testing.T) {
	mock := &mockProvider{scripts: [][]*schema.Message{
		textScript("\n \n"),
	}}
	gen := NewTitleGenerator(newMockRegistry(mock), 50)

	sess := Create("mock", "test-model")
	title := gen.Generate(context.Background(), &sess, "hello there", func(stream.Event) {})
	assert.Equal(t, "hello there", title)
}

func TestTitleGenerator_NeverEmpty(t *testing.T) {
	mock := &mockProvider{errs: []error{fmt.Errorf("down")}}
	gen := NewTitleGenerator(newMockRegistry(mock), 50)

	sess := Create("mock", "test-model")
	title := gen.Generate(context.Background(), &sess, "", func(stream.Event) {})
	assert.Equal(t, "New Session", title)
}
