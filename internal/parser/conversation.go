package parser

import (
	"strings"
)

// TurnPair is one user turn matched with the nearest following assistant
// turn. PairIndex is 1-based in pairing order, not original turn index.
type TurnPair struct {
	PairIndex int
	UserText  string
	AIText    string
	AIMeta    map[string]interface{}
}

// Turns returns the raw turn list from a conversation object, checking
// "conversation_turns" first, then "turns".
func Turns(conv map[string]interface{}) []interface{} {
	if turns, ok := conv["conversation_turns"].([]interface{}); ok {
		return turns
	}
	if turns, ok := conv["turns"].([]interface{}); ok {
		return turns
	}
	return nil
}

// ExtractPairs scans turns in order pairing each user turn with the nearest
// following assistant turn. User turns with no following assistant turn are
// dropped silently.
func ExtractPairs(conv map[string]interface{}) []TurnPair {
	turns := Turns(conv)

	var pairs []TurnPair
	i := 0
	for i < len(turns) {
		turn, _ := turns[i].(map[string]interface{})
		role := strings.ToLower(stringify(turn["role"]))
		if !strings.Contains(role, "user") {
			i++
			continue
		}

		j := i + 1
		for j < len(turns) {
			next, _ := turns[j].(map[string]interface{})
			nextRole := strings.ToLower(stringify(next["role"]))
			if strings.Contains(nextRole, "ai") || strings.Contains(nextRole, "assistant") || strings.Contains(nextRole, "chatbot") {
				pairs = append(pairs, TurnPair{
					PairIndex: len(pairs) + 1,
					UserText:  turnText(turn),
					AIText:    turnText(next),
					AIMeta:    next,
				})
				break
			}
			j++
		}
		i = j + 1
	}

	return pairs
}

func turnText(turn map[string]interface{}) string {
	text := stringify(turn["message"])
	if text == "" {
		text = stringify(turn["text"])
	}
	return strings.TrimSpace(text)
}
