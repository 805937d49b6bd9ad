package bot

import (
	"strconv"
	"strings"
	"time"

	"github.com/kgarbacinski/AutoViralAI/internal/pipeline"
	"github.com/kgarbacinski/AutoViralAI/internal/types"
)

// Callback actions encoded into inline keyboard buttons as
// "{action}:{thread_id}[:extra]".
const (
	actionApprove        = "approve"
	actionReject         = "reject"
	actionRejectFeedback = "rejectfb"
	actionEdit           = "edit"
	actionAlt            = "alt"
	actionLater          = "later"
)

// Deferral extras for the "later" action.
const (
	laterPlus2h  = "2h"
	laterTonight = "tonight"
)

// tonightHour is the local hour "publish tonight" resolves to.
const tonightHour = 20

type callbackData struct {
	Action   string
	ThreadID string
	Extra    string
}

func (c callbackData) encode() string {
	s := c.Action + ":" + c.ThreadID
	if c.Extra != "" {
		s += ":" + c.Extra
	}
	return s
}

func parseCallback(data string) (callbackData, error) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return callbackData{}, types.NewErrorf(types.CALLBACK_INVALID, "malformed callback data %q", data)
	}

	cb := callbackData{Action: parts[0], ThreadID: parts[1]}
	if len(parts) == 3 {
		cb.Extra = parts[2]
	}

	switch cb.Action {
	case actionApprove, actionReject, actionRejectFeedback, actionEdit:
	case actionAlt:
		if _, err := strconv.Atoi(cb.Extra); err != nil {
			return callbackData{}, types.NewErrorf(types.CALLBACK_INVALID, "bad alternative index %q", cb.Extra)
		}
	case actionLater:
		if cb.Extra != laterPlus2h && cb.Extra != laterTonight {
			return callbackData{}, types.NewErrorf(types.CALLBACK_INVALID, "unknown deferral %q", cb.Extra)
		}
	default:
		return callbackData{}, types.NewErrorf(types.CALLBACK_INVALID, "unknown action %q", cb.Action)
	}
	return cb, nil
}

// decisionFor maps a parsed callback to a pipeline decision. The edit and
// reject-with-feedback actions return awaitText=true: the decision is
// completed by the user's next message.
func decisionFor(cb callbackData, now time.Time) (decision pipeline.HumanDecision, awaitText bool) {
	switch cb.Action {
	case actionApprove:
		return pipeline.HumanDecision{Decision: pipeline.DecisionApprove}, false
	case actionReject:
		return pipeline.HumanDecision{Decision: pipeline.DecisionReject}, false
	case actionRejectFeedback:
		return pipeline.HumanDecision{Decision: pipeline.DecisionReject}, true
	case actionEdit:
		return pipeline.HumanDecision{Decision: pipeline.DecisionEdit}, true
	case actionAlt:
		idx, _ := strconv.Atoi(cb.Extra)
		return pipeline.HumanDecision{Decision: pipeline.DecisionApprove, UseAlternative: &idx}, false
	case actionLater:
		at := deferralTime(cb.Extra, now)
		return pipeline.HumanDecision{Decision: pipeline.DecisionApprove, PublishAt: &at}, false
	}
	return pipeline.HumanDecision{Decision: pipeline.DecisionReject}, false
}

// awaitedDecision completes an await-text action with the user's next
// message. Feedback on a rejection sends the thread back through
// generation; edited text publishes as given.
func awaitedDecision(action, text string) pipeline.HumanDecision {
	if action == actionRejectFeedback {
		return pipeline.HumanDecision{Decision: pipeline.DecisionReject, Feedback: text}
	}
	return pipeline.HumanDecision{Decision: pipeline.DecisionEdit, EditedContent: text}
}

// deferralTime resolves a "later" extra to a concrete publish time.
func deferralTime(extra string, now time.Time) time.Time {
	if extra == laterPlus2h {
		return now.Add(2 * time.Hour)
	}
	tonight := time.Date(now.Year(), now.Month(), now.Day(), tonightHour, 0, 0, 0, now.Location())
	if !tonight.After(now) {
		tonight = tonight.AddDate(0, 0, 1)
	}
	return tonight
}
