package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/your-org/visora/internal/integrations"
	"github.com/your-org/visora/internal/observability"
)

func (t *Toolkit) GetWeather(ctx context.Context, city string) string {
	if t.deps.Weather == nil {
		return t.unavailable("weather", "Weather information")
	}
	city = strings.TrimSpace(city)
	if city == "" {
		observability.ToolCalls.WithLabelValues("weather", "rejected").Inc()
		return "Which city would you like the weather for?"
	}

	c, err := t.deps.Weather.Current(ctx, city)
	if err != nil {
		var se *integrations.StatusError
		if errors.As(err, &se) || errors.Is(err, integrations.ErrNoConditions) {
			observability.ToolCalls.WithLabelValues("weather", "rejected").Inc()
			return fmt.Sprintf("I couldn't get weather information for %s.", city)
		}
		return t.failed("weather", "get weather", err, fmt.Sprintf("Something went wrong while getting the weather for %s.", city))
	}

	observability.ToolCalls.WithLabelValues("weather", "ok").Inc()
	return c.Summary()
}

func (t *Toolkit) SearchWeb(ctx context.Context, query string) string {
	if t.deps.Search == nil {
		return t.unavailable("search", "Web search")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		observability.ToolCalls.WithLabelValues("search", "rejected").Inc()
		return "What would you like me to search for?"
	}

	res, err := t.deps.Search.Query(ctx, query)
	if err != nil {
		return t.failed("search", "search web", err, fmt.Sprintf("Something went wrong while searching for '%s'. Please try again.", query))
	}

	observability.ToolCalls.WithLabelValues("search", "ok").Inc()
	return res.Text()
}

// SendEmail sends a plain-text message with an optional CC.
func (t *Toolkit) SendEmail(ctx context.Context, to, subject, message, cc string) string {
	if t.deps.Mailer == nil {
		return t.unavailable("email", "Email")
	}

	err := t.deps.Mailer.Send(ctx, integrations.Email{To: to, CC: cc, Subject: subject, Body: message})
	switch {
	case err == nil:
		observability.ToolCalls.WithLabelValues("email", "ok").Inc()
		return fmt.Sprintf("Email sent successfully to %s", strings.TrimSpace(to))
	case errors.Is(err, integrations.ErrNotConfigured):
		observability.ToolCalls.WithLabelValues("email", "unavailable").Inc()
		return "Email sending failed: Gmail credentials not configured."
	case errors.Is(err, integrations.ErrNoRecipient):
		observability.ToolCalls.WithLabelValues("email", "rejected").Inc()
		return "Who should I send the email to?"
	default:
		return t.failed("email", "send email", err, fmt.Sprintf("Email sending failed: %v", err))
	}
}
