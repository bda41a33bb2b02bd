package domain

import (
	"regexp"
	"strings"
)

// UnknownName is rendered for players whose name was never learned
const UnknownName = "<unknown>"

// BotSuffix is appended to the names of built-in bots
const BotSuffix = " [bot]"

// builtinBots are the stock Quake 3 bot names
var builtinBots = map[string]struct{}{
	"anarki": {}, "angel": {}, "biker": {}, "bitterman": {}, "bones": {},
	"cadavre": {}, "crash": {}, "daemia": {}, "doom": {}, "gorre": {},
	"grunt": {}, "hossman": {}, "hunter": {}, "keel": {}, "klesk": {},
	"lucy": {}, "major": {}, "mynx": {}, "orbb": {}, "patriot": {},
	"phobos": {}, "ranger": {}, "razor": {}, "sarge": {}, "slash": {},
	"sorlag": {}, "stripe": {}, "tankjr": {}, "uriel": {}, "visor": {},
	"wrack": {}, "xaero": {},
}

// q3ColorCodeRegex matches Quake 3 color codes like ^1, ^2, etc.
var q3ColorCodeRegex = regexp.MustCompile(`\^[0-9]`)

// CleanQ3Name removes Quake 3 color codes from a player name
func CleanQ3Name(name string) string {
	return q3ColorCodeRegex.ReplaceAllString(name, "")
}

// IsBot reports whether name is one of the built-in bots. A human who picks
// a bot's name is indistinguishable here.
func IsBot(name string) bool {
	_, ok := builtinBots[strings.ToLower(CleanQ3Name(name))]
	return ok
}

// DisplayName renders a player name for notifications and leaderboards
func DisplayName(name string) string {
	if name == "" {
		return UnknownName
	}
	if IsBot(name) {
		return name + BotSuffix
	}
	return name
}
