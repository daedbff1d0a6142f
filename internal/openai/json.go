package openaipkg

import "strings"

// CleanOpenAIJSONResponse cleans the JSON response from OpenAI API: it drops
// everything before the first '[' or '{' and everything after the last
// matching ']' or '}', which removes greetings and markdown fences.
func CleanOpenAIJSONResponse(content string) string {
	start := strings.IndexAny(content, "[{")
	if start < 0 {
		return ""
	}
	closer := byte('}')
	if content[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(content, closer)
	if end < start {
		return ""
	}
	return content[start : end+1]
}
