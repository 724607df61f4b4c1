package usecase

import (
	"context"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	domainOutcome "github.com/ymzk/threadpilot/domains/outcome"
	domainRunner "github.com/ymzk/threadpilot/domains/runner"
	domainSchedule "github.com/ymzk/threadpilot/domains/schedule"
	"github.com/ymzk/threadpilot/pkg/timewindow"
	"github.com/ymzk/threadpilot/repository"
)

// Publisher turns resolved content into a visible post on the platform.
type Publisher interface {
	Publish(ctx context.Context, accessToken, text string, mediaURLs []string) (domainRunner.PublishResult, error)
}

// Rewriter rephrases a template body. Failures never block a run; callers
// fall back to the original text.
type Rewriter interface {
	Rewrite(ctx context.Context, reference string) (string, error)
}

// defaultPostBody covers templates stored with an empty body.
const defaultPostBody = "(no content)"

var mediaSeparators = regexp.MustCompile(`[\n, ]+`)

// SplitMediaURLs splits a stored media reference into ordered URLs on any
// run of newline, comma or space characters, dropping empty tokens.
func SplitMediaURLs(raw string) []string {
	var urls []string
	for _, tok := range mediaSeparators.Split(raw, -1) {
		if tok != "" {
			urls = append(urls, tok)
		}
	}
	return urls
}

// resolvedContent is what the resolver hands to the publisher. A non-empty
// SkipReason means nothing is publishable and the schedule still advances.
type resolvedContent struct {
	TemplateID   string
	Text         string
	MediaURLs    []string
	SkipReason   string
	MinutesOfDay int
}

type contentResolver struct {
	templates repository.ITemplateStore
	rewriter  Rewriter
	utcOffset int
	now       func() time.Time
}

func newContentResolver(templates repository.ITemplateStore, rewriter Rewriter, utcOffset int) *contentResolver {
	return &contentResolver{
		templates: templates,
		rewriter:  rewriter,
		utcOffset: utcOffset,
		now:       time.Now,
	}
}

// Resolve picks the next template for the account, gates it on its daily
// time window and produces the text plus media list for one attempt.
func (r *contentResolver) Resolve(ctx context.Context, accountID string, mode domainSchedule.Mode) (resolvedContent, error) {
	nowMinutes := timewindow.MinutesOfDay(r.now(), r.utcOffset)
	content := resolvedContent{MinutesOfDay: nowMinutes}

	templateID, err := r.templates.PickNext(ctx, accountID)
	if err != nil {
		return content, err
	}
	if templateID == "" {
		content.SkipReason = domainOutcome.ReasonTemplateNotFound
		return content, nil
	}
	content.TemplateID = templateID

	tpl, err := r.templates.GetByID(ctx, templateID)
	if err != nil {
		return content, err
	}

	if !timewindow.Within(tpl.TimeStart, tpl.TimeEnd, nowMinutes) {
		content.SkipReason = domainOutcome.ReasonOutOfTimeWindow
		return content, nil
	}

	content.Text = tpl.Body
	if content.Text == "" {
		content.Text = defaultPostBody
	}
	content.MediaURLs = SplitMediaURLs(tpl.MediaURL)

	if (mode == domainSchedule.ModeMix || mode == domainSchedule.ModeAI) && r.rewriter != nil {
		rewritten, err := r.rewriter.Rewrite(ctx, content.Text)
		if err != nil {
			logrus.WithError(err).Warn("[RESOLVER] Rewrite failed, keeping template text")
		} else if rewritten != "" {
			content.Text = rewritten
		}
	}

	return content, nil
}
