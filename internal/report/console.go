package report

import (
	stderrors "errors"

	"github.com/toyz/as2amd/internal/errors"
	"github.com/toyz/as2amd/internal/utils"
)

// Console prints events through a DiagnosticSystem. Per-file debug events only
// show in verbose mode.
type Console struct {
	ErrorFlag
	diag *utils.DiagnosticSystem
}

// NewConsole creates a console reporter
func NewConsole(diag *utils.DiagnosticSystem) *Console {
	return &Console{diag: diag}
}

func (c *Console) Step(e Event) {
	switch e.Level {
	case LevelWarn:
		c.diag.Warn("%s: %s", e.Phase, e.Message)
	case LevelInfo:
		c.diag.Info("%s: %s", e.Phase, e.Message)
	default:
		c.diag.Verbose("%s: %s", e.Phase, e.Message)
	}
}

func (c *Console) Error(phase string, err error) {
	c.Mark()
	var ce errors.ConvertError
	if stderrors.As(err, &ce) {
		c.diag.Error("%s: [%s] %s", phase, ce.ErrorCode(), ce.Error())
		return
	}
	c.diag.Error("%s: %v", phase, err)
}
