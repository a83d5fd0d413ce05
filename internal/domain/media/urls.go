package media

import "strings"

// JoinURLs flattens several output URLs into one string.
func JoinURLs(urls []string) string {
	return strings.Join(urls, URLDelimiter)
}

// SplitURLs recovers the list produced by JoinURLs. An empty string yields nil.
func SplitURLs(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, URLDelimiter)
}
