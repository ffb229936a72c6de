package ai

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/thinkscotty/postmuse/internal/mode"
	"github.com/thinkscotty/postmuse/internal/models"
)

// VisionInstruction accompanies the screenshot in the extraction call.
const VisionInstruction = "Extract the primary text content of the social media post shown in this image. " +
	"If it's not a social media post, describe the image briefly."

// personaSlots holds the wording that differs between the light and dark personas.
type personaSlots struct {
	analysisSystem       string
	analysisInstructions string
	promotionTone        string
	conversationalTone   string
}

// platformSlots holds the wording that differs between platforms.
type platformSlots struct {
	postOpening string
	hashtags    string
}

// promptProfile is the complete set of system prompts for one mode x platform pair.
type promptProfile struct {
	postSystem     string
	responseSystem string
}

var personas = map[bool]personaSlots{
	false: {
		analysisSystem: "You are a social media assistant analyzing posts for promotional opportunities.",
		analysisInstructions: `You are analyzing a social media post to determine if there's an opportunity to respond in a way that promotes a specific topic.

Your task:
1. Analyze the content of the post.
2. Determine if there's a natural way to respond to this post while promoting the topic.
3. If there is, provide a brief idea for a response that promotes the topic.
4. If there isn't a natural way to respond, indicate this clearly.

Your response should be formatted as:
OPPORTUNITY: [YES/NO]
IDEA: [Your response idea if OPPORTUNITY is YES, otherwise leave blank]

Keep in mind:
- The response should feel natural and relevant to the original post (don't force it)
- The promotion should be subtle and not forced
- The response should be respectful and professional`,
		promotionTone:      "The promotion should be subtle and thoughtful",
		conversationalTone: "The post should be conversational and personable",
	},
	true: {
		analysisSystem: "You are a social media assistant analyzing posts for opportunities to respond with a sarcastic, cleverly contradictory tone.",
		analysisInstructions: `You are analyzing a social media post to determine if there's an opportunity to respond with a sarcastic, contradictory tone while subtly relating to a specific topic.

Your task:
1. Analyze the content of the post.
2. Determine if there's a clever way to respond to this post with wit and subtle contradiction.
3. If there is, provide a brief idea for a response that incorporates the topic with sarcasm.
4. If there isn't a good opportunity, indicate this clearly.

Your response should be formatted as:
OPPORTUNITY: [YES/NO]
IDEA: [Your response idea if OPPORTUNITY is YES, otherwise leave blank]

Keep in mind:
- The response should feel clever and subtly contradictory to the original post
- The sarcasm should be witty, not mean-spirited
- The response should be amusing and mildly cynical`,
		promotionTone:      "The post should be sarcastic and subversive",
		conversationalTone: "The post should be witty and mildly cynical",
	},
}

var platforms = map[models.Platform]platformSlots{
	models.PlatformX: {
		postOpening: "Create a concise, catchy post for X (formerly Twitter)",
		hashtags:    "Include 1-2 relevant hashtags to increase visibility",
	},
	models.PlatformLinkedIn: {
		postOpening: "Create a professional, informative LinkedIn post",
		hashtags:    "Include relevant hashtags and possibly a call to action",
	},
}

var profiles = map[mode.Context]promptProfile{
	{Dark: false, Platform: models.PlatformX}: {
		postSystem:     "You are a social media assistant creating promotional posts for X. Your posts should be concise, engaging, and optimized for virality.",
		responseSystem: "You are a helpful assistant that drafts concise and relevant replies for X (Twitter). Use the provided context to respond to the original post content. FORMAT FOR X: Keep responses under 280 characters, engaging, and to the point.",
	},
	{Dark: false, Platform: models.PlatformLinkedIn}: {
		postSystem:     "You are a social media assistant creating promotional LinkedIn posts. Your posts should be professional, thoughtful, and optimized for a business audience.",
		responseSystem: "You are a helpful assistant that drafts professional and relevant LinkedIn replies. Use the provided context to respond to the original post content. FORMAT FOR LINKEDIN: Your response should be more detailed (150-500 characters), professional in tone, and could include thoughtful insights or questions. Add value to the conversation in a business-appropriate way.",
	},
	{Dark: true, Platform: models.PlatformX}: {
		postSystem:     "You are a sarcastic, slightly cynical social media assistant creating posts for X. Your posts should be clever, slightly contradictory, and use dark humor. Be concise and punchy.",
		responseSystem: "You are a witty assistant that drafts sarcastic and cleverly contradictory replies for X (Twitter). Use the provided context but frame your response with dark humor and a touch of cynicism. FORMAT FOR X: Keep responses under 280 characters, punchy, with sharp wit and no corporate speak.",
	},
	{Dark: true, Platform: models.PlatformLinkedIn}: {
		postSystem:     "You are a sarcastic, slightly cynical social media assistant creating LinkedIn posts. Your posts should be clever, slightly contradictory, use dark humor, but still maintain a professional tone appropriate for LinkedIn.",
		responseSystem: "You are a witty assistant that drafts sarcastic and cleverly contradictory LinkedIn replies. Use the provided context but frame your response with dark humor and a touch of cynicism. FORMAT FOR LINKEDIN: Your response should be substantially more detailed (300-800 characters), professional in tone despite the sarcasm, and should include thoughtful observations with layers of irony. Maintain the cynical tone but with a corporate-appropriate veneer that subtly mocks business jargon and LinkedIn culture.",
	},
}

// normalize maps unknown platforms onto X so every lookup hits a table entry.
func normalize(mc mode.Context) mode.Context {
	return mode.Context{Dark: mc.Dark, Platform: models.ParsePlatform(string(mc.Platform))}
}

func AnalysisSystemPrompt(mc mode.Context) string {
	return personas[mc.Dark].analysisSystem
}

// BuildAnalysisPrompt constructs the judge prompt for one topic.
func BuildAnalysisPrompt(mc mode.Context, post string, topic models.Topic) string {
	var sb strings.Builder

	sb.WriteString(personas[mc.Dark].analysisInstructions)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("## Topic to promote: %s\n\n", topic.Name))
	sb.WriteString("## Topic description:\n")
	sb.WriteString(topic.Content)
	sb.WriteString("\n-------------------------------------------------------------------\n\n")
	sb.WriteString("## Social Media Post:\n")
	sb.WriteString(post)
	sb.WriteString("\n\n-------------------------------------------------------------------\n\n")
	sb.WriteString("Analyze the post and provide your assessment.")

	return sb.String()
}

func ResponseSystemPrompt(mc mode.Context) string {
	return profiles[normalize(mc)].responseSystem
}

// BuildResponsePrompt constructs the reply-generation prompt used when the
// judge found an opportunity but gave no usable idea.
func BuildResponsePrompt(post string, topic models.Topic, idea string) string {
	var sb strings.Builder

	sb.WriteString("Original Post Content:\n")
	sb.WriteString(post)
	sb.WriteString("\n\nRelevant Context:\n")
	sb.WriteString(fmt.Sprintf("Topic: %s\n\n%s", topic.Name, topic.Content))
	if idea != "" {
		sb.WriteString(fmt.Sprintf("\n\nResponse idea: %s", idea))
	}
	sb.WriteString("\n\nDraft a helpful and concise reply to the original post using the provided context.\n")
	sb.WriteString("Keep the response natural, relevant, and under 280 characters if possible.")

	return sb.String()
}

func PostGenerationSystemPrompt(mc mode.Context) string {
	return profiles[normalize(mc)].postSystem
}

// BuildPostPrompt constructs the prompt for a standalone promotional post.
func BuildPostPrompt(mc mode.Context, topic models.Topic, specialInstructions string) string {
	mc = normalize(mc)
	persona := personas[mc.Dark]
	platform := platforms[mc.Platform]

	var sb strings.Builder

	sb.WriteString("You are creating a social media post to promote a specific topic.\n\n")
	sb.WriteString("Your task:\n")
	sb.WriteString(fmt.Sprintf("1. %s that promotes the topic.\n", platform.postOpening))
	sb.WriteString("2. Make the post feel authentic, not like an advertisement.\n")
	sb.WriteString(fmt.Sprintf("3. %s.\n", platform.hashtags))
	sb.WriteString(fmt.Sprintf("4. Ensure the post is under %d characters!\n\n", mc.CharacterLimit()))
	sb.WriteString("Your response should be formatted as:\n")
	sb.WriteString("TWEET: [Your post text including any hashtags]\n\n")
	sb.WriteString("Keep in mind:\n")
	sb.WriteString("- The post should be engaging and encourage interaction\n")
	sb.WriteString(fmt.Sprintf("- %s\n", persona.promotionTone))
	sb.WriteString(fmt.Sprintf("- %s\n", persona.conversationalTone))
	sb.WriteString("- Feel free to ask thought-provoking questions, share interesting facts, or offer insights\n\n")
	sb.WriteString(fmt.Sprintf("Topic to promote: %s\n\n", topic.Name))
	sb.WriteString("Topic description:\n")
	sb.WriteString(topic.Content)
	sb.WriteString("\n")

	if s := strings.TrimSpace(specialInstructions); s != "" {
		sb.WriteString("\nSpecial instructions:\n")
		sb.WriteString(s)
		sb.WriteString("\n")
	}

	sb.WriteString("\nCreate an engaging promotional post for this topic.")

	return sb.String()
}

// Judgement is the parsed answer of one judge call.
type Judgement struct {
	Opportunity bool
	Idea        string
}

// Usable reports whether the judgement should stop the scan.
func (j Judgement) Usable() bool {
	return j.Opportunity && j.Idea != ""
}

// ParseJudgeResponse reads the OPPORTUNITY and IDEA lines of a judge answer.
// Both prefixes match case-insensitively; a blank idea is treated as none.
func ParseJudgeResponse(text string) Judgement {
	var j Judgement
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case hasPrefixFold(line, "OPPORTUNITY:"):
			value := strings.TrimSpace(line[len("OPPORTUNITY:"):])
			j.Opportunity = strings.ToUpper(value) == "YES"
		case hasPrefixFold(line, "IDEA:"):
			j.Idea = strings.TrimSpace(line[len("IDEA:"):])
		}
	}
	return j
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

var tweetPattern = regexp.MustCompile(`(?s)TWEET:\s*(.+)`)

// ExtractTweet returns the text after the TWEET: marker, or the whole
// response trimmed if the marker is missing.
func ExtractTweet(text string) string {
	if m := tweetPattern.FindStringSubmatch(text); m != nil {
		if t := strings.TrimSpace(m[1]); t != "" {
			return t
		}
	}
	return strings.TrimSpace(text)
}
