package bot

import "github.com/slack-go/slack"

// SlackAPI abstracts the subset of slack.Client used by the bot, so tests
// can substitute a mock without a live Slack connection.
type SlackAPI interface {
	AuthTest() (*slack.AuthTestResponse, error)
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
	PostEphemeral(channelID, userID string, options ...slack.MsgOption) (string, error)
}
