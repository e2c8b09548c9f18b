// Package profile builds personalised article prompts and pulls linkable topics
// out of the generated text.
package profile

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DefaultLanguage is used when no article language is requested.
const DefaultLanguage = "Russian"

// Topic types.
const (
	TopicExternal = "external"
	TopicSearch   = "search"
)

const (
	maxSearchCandidates = 5
	minSearchTopicLen   = 4
	searchURLPrefix     = "https://www.google.com/search?q="
)

// ErrInvalidProfile is returned by Validate.
var ErrInvalidProfile = errors.New("invalid profile")

// Profile describes the reader an article is written for.
type Profile struct {
	Name       string   `json:"name"`
	Age        int      `json:"age"`
	Profession string   `json:"profession"`
	Interests  []string `json:"interests"`
	Education  string   `json:"education"`
	Location   string   `json:"location"`
	Bio        string   `json:"bio"`
}

// Validate checks the required fields.
func (p Profile) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	case strings.TrimSpace(p.Profession) == "":
		return fmt.Errorf("%w: profession is required", ErrInvalidProfile)
	case p.Age < 0:
		return fmt.Errorf("%w: age must not be negative", ErrInvalidProfile)
	}
	return nil
}

// Fields flattens the profile for storage.
func (p Profile) Fields() map[string]any {
	interests := p.Interests
	if interests == nil {
		interests = []string{}
	}
	return map[string]any{
		"name":       p.Name,
		"age":        p.Age,
		"profession": p.Profession,
		"interests":  interests,
		"education":  p.Education,
		"location":   p.Location,
		"bio":        p.Bio,
	}
}

// Topic is one link offered alongside an article.
type Topic struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// BuildArticlePrompt asks for a short, practical article written for the
// reader rather than about them, with 6 to 8 markdown links.
func BuildArticlePrompt(p Profile, language string) string {
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}
	interests := strings.Join(p.Interests, ", ")
	education := orDefault(p.Education, "not specified")
	location := orDefault(p.Location, "not specified")

	var b strings.Builder
	fmt.Fprintf(&b, "Write a short, informative article (150-200 words) that will be interesting and useful for a person with the following profile:\n")
	fmt.Fprintf(&b, "- Profession: %s\n", p.Profession)
	fmt.Fprintf(&b, "- Age: %d\n", p.Age)
	fmt.Fprintf(&b, "- Education: %s\n", education)
	fmt.Fprintf(&b, "- Location: %s\n", location)
	fmt.Fprintf(&b, "- Interests: %s\n", interests)
	fmt.Fprintf(&b, "- Additional information: %s\n\n", p.Bio)

	b.WriteString("IMPORTANT: the article must NOT be about the person. It must contain useful information, advice, " +
		"knowledge or facts relevant to their profession, interests and profile.\n\n")

	b.WriteString("FORMATTING:\n")
	b.WriteString("- Separate paragraphs with a blank line (\\n\\n)\n")
	b.WriteString("- Exactly 2-3 paragraphs of 2-4 sentences each\n")
	b.WriteString("- No single line breaks inside a paragraph\n\n")

	b.WriteString("CONTENT:\n")
	fmt.Fprintf(&b, "- Focus on what helps in their profession (%s)\n", p.Profession)
	fmt.Fprintf(&b, "- Include current advice, trends or knowledge about their interests: %s\n", interests)
	b.WriteString("- Give practical value with concrete examples and facts; avoid generic phrases\n\n")

	b.WriteString("LINKS:\n")
	b.WriteString("- Include 6-8 natural markdown links in the text: [Resource name](https://real-resource-url.com)\n")
	b.WriteString("- Link only to real, useful resources: official documentation, learning platforms, tools, " +
		"expert blogs, communities, channels or podcasts\n")
	b.WriteString("- Every link must be unique and described by its link text\n\n")

	b.WriteString("STYLE:\n")
	b.WriteString("- Address the reader in the second person or use impersonal constructions\n")
	b.WriteString("- Professional but accessible language\n\n")

	fmt.Fprintf(&b, "Pick the topic most useful for a \"%s\" interested in \"%s\".\n", p.Profession, interests)
	fmt.Fprintf(&b, "Write the whole article in %s.\n\n", language)
	b.WriteString("Write the article now:")
	return b.String()
}

var (
	markdownLink      = regexp.MustCompile(`\[([^\]]+)\]\(([^\)]+)\)`)
	capitalizedPhrase = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\b`)
)

// ExtractTopics returns the markdown links in text as external topics. When
// there are none it falls back to search topics built from the first few
// capitalized phrases.
func ExtractTopics(text string) []Topic {
	topics := make([]Topic, 0)
	for _, m := range markdownLink.FindAllStringSubmatch(text, -1) {
		topics = append(topics, Topic{Title: m[1], URL: m[2], Type: TopicExternal})
	}
	if len(topics) > 0 {
		return topics
	}

	seen := make(map[string]struct{})
	for _, phrase := range capitalizedPhrase.FindAllString(text, maxSearchCandidates) {
		if _, dup := seen[phrase]; dup {
			continue
		}
		seen[phrase] = struct{}{}
		if len(phrase) < minSearchTopicLen {
			continue
		}
		topics = append(topics, Topic{
			Title: phrase,
			URL:   searchURLPrefix + url.QueryEscape(phrase),
			Type:  TopicSearch,
		})
	}
	return topics
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
