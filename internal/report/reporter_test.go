package report

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/as2amd/internal/errors"
	"github.com/toyz/as2amd/internal/utils"
)

func TestNull(t *testing.T) {
	var r Reporter = Null{}
	r.Step(Event{Phase: "parse", Message: "ignored"})
	r.Error("parse", fmt.Errorf("boom"))
	assert.False(t, r.HasError())
}

func TestRecorder_ConcurrentUse(t *testing.T) {
	rec := &Recorder{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec.Step(Event{Phase: "parse", Message: fmt.Sprintf("file %d", i)})
			if i%10 == 0 {
				rec.Error("parse", fmt.Errorf("bad file %d", i))
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, rec.Events(), 50)
	assert.Len(t, rec.EventsFor("parse"), 50)
	assert.Empty(t, rec.EventsFor("rewrite"))
	assert.Len(t, rec.Errors(), 5)
	assert.Equal(t, 5, rec.ErrorCount())
	assert.True(t, rec.HasError())
}

func TestMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := NewMulti(a, nil, b)
	require.Len(t, m, 2)

	m.Step(Event{Phase: "cycles", Message: "resolving"})
	assert.False(t, m.HasError())
	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)

	m.Error("rewrite", fmt.Errorf("unresolved"))
	assert.True(t, m.HasError())
	assert.True(t, a.HasError())
	assert.True(t, b.HasError())
}

func TestConsole(t *testing.T) {
	var out, errOut bytes.Buffer
	diag := utils.NewDiagnosticSystem(utils.DiagnosticInfo)
	diag.SetOutput(&out, &errOut)
	c := NewConsole(diag)

	c.Step(Event{Phase: "parse", Message: "parsing a.as", Level: LevelDebug})
	c.Step(Event{Phase: "cycles", Message: "resolving circular dependencies in: a.js, b.js", Level: LevelInfo})
	c.Step(Event{Phase: "symbols", Message: "export conflict", Level: LevelWarn})
	assert.False(t, c.HasError())

	c.Error("rewrite", errors.NewRewriteError("a.as", 3, 5, "foo", "unresolved identifier 'foo'"))

	assert.NotContains(t, out.String(), "parsing a.as")
	assert.Contains(t, out.String(), "[INFO] cycles: resolving circular dependencies in: a.js, b.js")
	assert.Contains(t, out.String(), "[WARN] symbols: export conflict")
	assert.Contains(t, errOut.String(), "[ERROR] rewrite: [RewriteError] a.as:3:5: unresolved identifier 'foo'")
	assert.True(t, c.HasError())
}

func TestLog(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	l := NewLog(logger, logrus.Fields{"run_id": "abc"})

	l.Step(Event{Phase: "parse", Message: "parsing", Level: LevelDebug, Context: map[string]any{"filename": "a.as"}})
	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, "parse", entry.Data["phase"])
	assert.Equal(t, "a.as", entry.Data["filename"])
	assert.Equal(t, "abc", entry.Data["run_id"])

	l.Error("parse", errors.NewParseError("a.as", 1, 2, "unexpected token"))
	entry = hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "ParseError", entry.Data["code"])
	assert.Equal(t, "a.as:1:2", entry.Data["location"])
	assert.True(t, l.HasError())
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("json", "debug")
	require.NoError(t, err)
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	_, err = NewLogger("text", "shouting")
	assert.Error(t, err)
}
