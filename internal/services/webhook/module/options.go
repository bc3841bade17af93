package module

import (
	"shipledger/internal/platform/config"
)

// Options configures the webhook module
type Options struct {
	// JiraSecretName and BitbucketSecretName name the secrets holding the
	// shared webhook secrets; empty disables the respective auth check
	JiraSecretName      string
	BitbucketSecretName string

	// MaxInFlight caps concurrent hook deliveries; trackers retry on 503
	MaxInFlight int
}

// FromConfig reads options from config.Conf
func FromConfig(cfg config.Conf) Options {
	wf := cfg.Prefix("CORE_WEBHOOK_")
	return Options{
		JiraSecretName:      wf.MayString("JIRA_SECRET_NAME", "JIRA_WEBHOOK_SECRET"),
		BitbucketSecretName: wf.MayString("BITBUCKET_SECRET_NAME", "BITBUCKET_WEBHOOK_SECRET"),
		MaxInFlight:         wf.MayInt("MAX_IN_FLIGHT", 64),
	}
}
