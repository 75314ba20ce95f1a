// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import "strings"

// repairJSON fixes keys that lost their opening quote, a common defect of
// small local models: `{is_match": true}` becomes `{"is_match": true}`.
// Everything else passes through unchanged.
func repairJSON(s string) string {
	in := []rune(s)
	var out strings.Builder
	out.Grow(len(s) + 16)

	for i := 0; i < len(in); {
		ch := in[i]
		out.WriteRune(ch)
		i++
		if ch != '{' && ch != ',' {
			continue
		}

		for i < len(in) && (in[i] == ' ' || in[i] == '\n' || in[i] == '\t' || in[i] == '\r') {
			out.WriteRune(in[i])
			i++
		}
		if i >= len(in) || !isLetter(in[i]) {
			continue
		}

		end := i
		for end < len(in) && (isLetter(in[end]) || in[end] == '_') {
			end++
		}
		if end+1 < len(in) && in[end] == '"' && in[end+1] == ':' {
			out.WriteRune('"')
		}
		out.WriteString(string(in[i:end]))
		i = end
	}

	return out.String()
}
