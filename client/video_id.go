package client

import "regexp"

// videoIDPattern matches watch links (v= anywhere in the query), short links, shorts and live URLs.
var videoIDPattern = regexp.MustCompile(`(?:youtube\.com/watch\?(?:[^#\s]*&)?v=|youtu\.be/|youtube\.com/shorts/|youtube\.com/live/)([0-9A-Za-z_-]+)`)

// ExtractVideoID returns the YouTube video id contained in url, or "" when url is not a
// recognised YouTube video link.
func ExtractVideoID(url string) string {
	m := videoIDPattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}
