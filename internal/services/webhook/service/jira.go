package service

import (
	"encoding/json"
	"strconv"
	"time"

	perr "shipledger/internal/platform/errors"
	"shipledger/internal/services/webhook/domain"
)

// Supported Jira event types; everything else is acknowledged and dropped
const (
	EventIssueCreated = "jira:issue_created"
	EventIssueUpdated = "jira:issue_updated"
	EventIssueDeleted = "jira:issue_deleted"
)

// atlassianTime is the offset format Jira puts in issue fields
const atlassianTime = "2006-01-02T15:04:05.000-0700"

// flexString tolerates upstream fields that arrive as either a JSON
// string or a bare number
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type jiraEnvelope struct {
	WebhookEvent string     `json:"webhookEvent"`
	Timestamp    flexString `json:"timestamp"`

	DeliveryID    string `json:"deliveryId"`
	DeliveryIDAlt string `json:"delivery_id"`
	EventID       string `json:"eventId"`
	EventIDAlt    string `json:"event_id"`

	Issue     *jiraIssue     `json:"issue"`
	Changelog *jiraChangelog `json:"changelog"`
}

type jiraIssue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields *jiraFields `json:"fields"`
}

type jiraFields struct {
	Updated     string        `json:"updated"`
	Created     string        `json:"created"`
	Status      *jiraName     `json:"status"`
	Assignee    *jiraAssignee `json:"assignee"`
	FixVersions []jiraName    `json:"fixVersions"`
}

type jiraName struct {
	Name string `json:"name"`
}

type jiraAssignee struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
}

type jiraChangelog struct {
	ID flexString `json:"id"`
}

// ParseJira decodes a raw Jira webhook body into a normalized event
func ParseJira(body []byte) (domain.JiraEvent, error) {
	var env jiraEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.JiraEvent{}, perr.JSONErrf("invalid webhook payload: %v", err)
	}
	if env.WebhookEvent == "" {
		return domain.JiraEvent{}, perr.Newf(perr.ErrorCodeValidation, "missing webhookEvent")
	}
	if env.Issue == nil {
		return domain.JiraEvent{}, perr.Newf(perr.ErrorCodeValidation, "missing issue payload")
	}
	key := env.Issue.Key
	if key == "" {
		key = env.Issue.ID
	}
	if key == "" {
		return domain.JiraEvent{}, perr.Newf(perr.ErrorCodeValidation, "missing issue key")
	}

	ev := domain.JiraEvent{
		Type:     env.WebhookEvent,
		IssueKey: key,
		IssueID:  env.Issue.ID,
	}
	if ev.IssueID == "" {
		ev.IssueID = key
	}

	ev.Status = "UNKNOWN"
	ev.Assignee = "UNASSIGNED"
	if f := env.Issue.Fields; f != nil {
		if f.Status != nil && f.Status.Name != "" {
			ev.Status = f.Status.Name
		}
		if f.Assignee != nil {
			if f.Assignee.AccountID != "" {
				ev.Assignee = f.Assignee.AccountID
			} else if f.Assignee.DisplayName != "" {
				ev.Assignee = f.Assignee.DisplayName
			}
		}
		for _, fv := range f.FixVersions {
			if fv.Name != "" {
				ev.FixVersions = append(ev.FixVersions, fv.Name)
			}
		}
	}

	if env.Timestamp != "" {
		ev.TimestampRaw = string(env.Timestamp)
		if ms, err := strconv.ParseFloat(string(env.Timestamp), 64); err == nil {
			ts := time.UnixMilli(int64(ms)).UTC()
			ev.Timestamp = &ts
		}
	}

	ev.UpdatedAt = resolveUpdated(env, ev.Timestamp)

	for _, id := range []string{env.DeliveryID, env.DeliveryIDAlt, env.EventID, env.EventIDAlt} {
		if id != "" {
			ev.DeliveryID = id
			break
		}
	}
	if env.Changelog != nil {
		ev.ChangelogID = string(env.Changelog.ID)
	}
	return ev, nil
}

func resolveUpdated(env jiraEnvelope, envelopeTS *time.Time) time.Time {
	if f := env.Issue.Fields; f != nil {
		for _, raw := range []string{f.Updated, f.Created} {
			if raw == "" {
				continue
			}
			if t, err := parseJiraTime(raw); err == nil {
				return t
			}
		}
	}
	if envelopeTS != nil {
		return *envelopeTS
	}
	return time.Now().UTC()
}

func parseJiraTime(raw string) (time.Time, error) {
	if t, err := time.Parse(atlassianTime, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// deriveIdempotencyKey prefers an explicit delivery or event id, then the
// changelog id, then issueKey:timestamp, then issueKey:updatedAt:eventType
func deriveIdempotencyKey(ev domain.JiraEvent) string {
	if ev.DeliveryID != "" {
		return ev.DeliveryID
	}
	if ev.ChangelogID != "" {
		return ev.ChangelogID
	}
	if ev.TimestampRaw != "" {
		return ev.IssueKey + ":" + ev.TimestampRaw
	}
	return ev.IssueKey + ":" + ev.UpdatedAt.UTC().Format(time.RFC3339) + ":" + ev.Type
}

// Supported reports whether the event type is one this service applies
func Supported(eventType string) bool {
	switch eventType {
	case EventIssueCreated, EventIssueUpdated, EventIssueDeleted:
		return true
	}
	return false
}
