package audit

import (
	"go.uber.org/zap"

	"github.com/probaccess/sitegate/internal/engine"
	"github.com/probaccess/sitegate/internal/guard"
	"github.com/probaccess/sitegate/internal/model"
)

// Recorder feeds enforced guard outcomes into the decision log. A failed
// append is logged and swallowed: auditing must never block enforcement.
type Recorder struct {
	dest       *Log
	configHash string
	log        *zap.Logger
}

func NewRecorder(dest *Log, configHash string, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{dest: dest, configHash: configHash, log: log}
}

// Record implements guard.Recorder.
func (r *Recorder) Record(req engine.Request, o guard.Outcome) {
	entry := Entry{
		EvalID:     o.EvalID,
		Address:    req.Address,
		Principal:  principalLabel(req.Principal),
		Verdict:    string(o.Decision.Verdict),
		Reason:     string(o.Decision.Reason),
		Redirected: o.Redirected,
		ConfigHash: r.configHash,
	}
	if err := r.dest.Record(entry); err != nil {
		r.log.Error("decision log append failed", zap.Error(err))
	}
}

func principalLabel(p model.Principal) string {
	if e := model.NormalizeEmail(p.Email); e != "" {
		return e
	}
	if p.ID != "" {
		return p.ID
	}
	return p.DisplayName
}
