package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thinkscotty/postmuse/internal/mode"
	"github.com/thinkscotty/postmuse/internal/models"
)

func TestParseJudgeResponse(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   Judgement
		usable bool
	}{
		{"lowercase yes", "OPPORTUNITY: yes\nIDEA: Check out our new widget!", Judgement{true, "Check out our new widget!"}, true},
		{"mixed case prefixes", "  opportunity: YES  \n  Idea:   Mention the launch  ", Judgement{true, "Mention the launch"}, true},
		{"no", "OPPORTUNITY: NO\nIDEA:", Judgement{false, ""}, false},
		{"yes with blank idea", "OPPORTUNITY: YES\nIDEA:   ", Judgement{true, ""}, false},
		{"yes without idea line", "OPPORTUNITY: YES", Judgement{true, ""}, false},
		{"surrounding chatter", "Sure!\nOPPORTUNITY: YES\nIDEA: Riff on it\nThanks", Judgement{true, "Riff on it"}, true},
		{"not exactly yes", "OPPORTUNITY: YES!\nIDEA: x", Judgement{false, "x"}, false},
		{"empty", "", Judgement{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseJudgeResponse(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.usable, got.Usable())
		})
	}
}

func TestExtractTweet(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"marker", "TWEET: Hello world #go", "Hello world #go"},
		{"multiline after marker", "Here you go:\nTWEET: Line one\nLine two\n", "Line one\nLine two"},
		{"no marker", "  Just a post  ", "Just a post"},
		{"empty after marker", "TWEET:   ", "TWEET:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTweet(tt.input))
		})
	}
}

func TestBuildPostPromptSlots(t *testing.T) {
	topic := models.Topic{Name: "Widgets", Content: "We make widgets."}

	tests := []struct {
		name    string
		mc      mode.Context
		want    []string
		notWant []string
	}{
		{
			name: "light x",
			mc:   mode.Context{Platform: models.PlatformX},
			want: []string{
				"1. Create a concise, catchy post for X (formerly Twitter) that promotes the topic.",
				"3. Include 1-2 relevant hashtags to increase visibility.",
				"under 280 characters!",
				"- The promotion should be subtle and thoughtful",
				"- The post should be conversational and personable",
			},
			notWant: []string{"sarcastic"},
		},
		{
			name: "dark linkedin",
			mc:   mode.Context{Dark: true, Platform: models.PlatformLinkedIn},
			want: []string{
				"1. Create a professional, informative LinkedIn post that promotes the topic.",
				"3. Include relevant hashtags and possibly a call to action.",
				"under 3000 characters!",
				"- The post should be sarcastic and subversive",
				"- The post should be witty and mildly cynical",
			},
			notWant: []string{"subtle and thoughtful", "280"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := BuildPostPrompt(tt.mc, topic, "")
			for _, w := range tt.want {
				assert.Contains(t, p, w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, p, nw)
			}
			assert.Contains(t, p, "Topic to promote: Widgets")
			assert.Contains(t, p, "TWEET: [Your post text including any hashtags]")
			assert.NotContains(t, p, "Special instructions")
		})
	}
}

func TestBuildPostPromptSpecialInstructions(t *testing.T) {
	p := BuildPostPrompt(mode.Context{Platform: models.PlatformX}, models.Topic{Name: "A"}, "  mention the sale  ")
	assert.Contains(t, p, "Special instructions:\nmention the sale\n")
	assert.True(t, strings.HasSuffix(p, "Create an engaging promotional post for this topic."))
}

func TestSystemPromptsCoverEveryProfile(t *testing.T) {
	for _, dark := range []bool{false, true} {
		for _, p := range []models.Platform{models.PlatformX, models.PlatformLinkedIn} {
			mc := mode.Context{Dark: dark, Platform: p}
			assert.NotEmpty(t, PostGenerationSystemPrompt(mc))
			assert.NotEmpty(t, ResponseSystemPrompt(mc))
			assert.Contains(t, ResponseSystemPrompt(mc), "FORMAT FOR "+strings.ToUpper(mc.PlatformName()))
		}
	}

	assert.Equal(t, PostGenerationSystemPrompt(mode.Context{}), PostGenerationSystemPrompt(mode.Context{Platform: models.PlatformX}),
		"an unset platform resolves to X")
}

func TestBuildAnalysisPrompt(t *testing.T) {
	topic := models.Topic{Name: "Widgets", Content: "We make widgets."}

	light := BuildAnalysisPrompt(mode.Context{}, "I need a widget", topic)
	assert.Contains(t, light, "The response should be respectful and professional")
	assert.Contains(t, light, "## Topic to promote: Widgets")
	assert.Contains(t, light, "## Social Media Post:\nI need a widget")
	assert.Contains(t, AnalysisSystemPrompt(mode.Context{}), "promotional opportunities")

	dark := BuildAnalysisPrompt(mode.Context{Dark: true}, "I need a widget", topic)
	assert.NotContains(t, dark, "respectful and professional")
	assert.Contains(t, dark, "The sarcasm should be witty, not mean-spirited")
	assert.Contains(t, AnalysisSystemPrompt(mode.Context{Dark: true}), "sarcastic")
}

func TestBuildResponsePrompt(t *testing.T) {
	topic := models.Topic{Name: "Widgets", Content: "We make widgets."}

	p := BuildResponsePrompt("post body", topic, "")
	assert.Contains(t, p, "Original Post Content:\npost body")
	assert.Contains(t, p, "Relevant Context:\nTopic: Widgets\n\nWe make widgets.")
	assert.NotContains(t, p, "Response idea:")
	assert.Contains(t, p, "under 280 characters if possible.")

	assert.Contains(t, BuildResponsePrompt("post", topic, "an idea"), "Response idea: an idea")
}
