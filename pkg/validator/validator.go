package validator

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

// String renders the errors sorted by field, e.g. "name: Group name is required".
func (v ValidationErrors) String() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return strings.Join(parts, "; ")
}

const (
	MaxGroupNameLen   = 100
	MaxMessageLen     = 4000
	MaxDisplayNameLen = 64
	MaxEmojiBytes     = 32
)

var channelRegex = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

func ValidateGroup(name string) ValidationErrors {
	errs := make(ValidationErrors)

	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add("name", "Group name is required")
	} else if utf8.RuneCountInString(name) > MaxGroupNameLen {
		errs.Add("name", "Group name is too long")
	}

	return errs
}

func ValidateMessage(text, senderName string, hasAuthor bool, imageURL *string) ValidationErrors {
	errs := make(ValidationErrors)

	text = strings.TrimSpace(text)
	if text == "" {
		errs.Add("text", "Message text is required")
	} else if utf8.RuneCountInString(text) > MaxMessageLen {
		errs.Add("text", "Message text is too long")
	}

	if !hasAuthor {
		errs.Add("uid", "Author is required")
	}

	senderName = strings.TrimSpace(senderName)
	if senderName == "" {
		errs.Add("sender_name", "Sender name is required")
	} else if utf8.RuneCountInString(senderName) > MaxDisplayNameLen {
		errs.Add("sender_name", "Sender name is too long")
	}

	if imageURL != nil && *imageURL != "" {
		u, err := url.Parse(*imageURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs.Add("image_url", "Image URL must be an absolute http(s) URL")
		}
	}

	return errs
}

func ValidateReaction(emoji string) ValidationErrors {
	errs := make(ValidationErrors)

	if strings.TrimSpace(emoji) == "" {
		errs.Add("emoji", "Emoji is required")
	} else if len(emoji) > MaxEmojiBytes {
		errs.Add("emoji", "Emoji is too long")
	}

	return errs
}

func ValidateChannel(name string) ValidationErrors {
	errs := make(ValidationErrors)

	if name == "" {
		errs.Add("channel", "Channel name is required")
	} else if !channelRegex.MatchString(name) {
		errs.Add("channel", "Channel name can only contain lowercase letters, numbers, _ and -")
	}

	return errs
}
