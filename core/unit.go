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

package core

import (
	"fmt"
	"regexp"
	"strings"
)

// UnitType identifies the structural kind of a ClauseRecord.
type UnitType int

const (
	// UnitArticle is a whole article ("제5조", "Article 5").
	UnitArticle UnitType = iota + 1
	// UnitClause is a numbered paragraph inside an article.
	UnitClause
	// UnitSubClause is an enumerated item inside a clause.
	UnitSubClause
	// UnitTable is a table rendered as text.
	UnitTable
	// UnitExhibit is an appendix or exhibit ("[별지 1]").
	UnitExhibit
)

var unitTypeNames = map[UnitType]string{
	UnitArticle:   "article",
	UnitClause:    "clause",
	UnitSubClause: "sub-clause",
	UnitTable:     "table",
	UnitExhibit:   "exhibit",
}

// String returns the lowercase name of the unit type.
func (u UnitType) String() string {
	if name, ok := unitTypeNames[u]; ok {
		return name
	}
	return fmt.Sprintf("unit(%d)", int(u))
}

// ParseUnitType converts a name such as "article" or "sub_clause" to a UnitType.
// The empty string parses as UnitClause.
func ParseUnitType(s string) (UnitType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "_", "-")
	switch name {
	case "":
		return UnitClause, nil
	case "subclause":
		return UnitSubClause, nil
	}
	for u, n := range unitTypeNames {
		if n == name {
			return u, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidUnitType, s)
}

// ValidateUnitType checks that u is one of the defined unit types.
func ValidateUnitType(u UnitType) error {
	if _, ok := unitTypeNames[u]; !ok {
		return fmt.Errorf("%w: value %d", ErrInvalidUnitType, u)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (u UnitType) MarshalText() ([]byte, error) {
	if err := ValidateUnitType(u); err != nil {
		return nil, err
	}
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *UnitType) UnmarshalText(text []byte) error {
	parsed, err := ParseUnitType(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

var (
	whitespaceRun   = regexp.MustCompile(`\s+`)
	exhibitHeading  = regexp.MustCompile(`(?i)^\s*\[(별지|별표|exhibit|appendix)[^\]]*\]\s*`)
	tableSeparators = strings.NewReplacer("|", " ", "\t", " ", "┃", " ", "│", " ")
)

// NormalizeForQuery turns stored clause text into query text for this unit type.
func (u UnitType) NormalizeForQuery(text string) string {
	text = strings.ReplaceAll(text, "//", " ")
	switch u {
	case UnitTable:
		text = tableSeparators.Replace(text)
	case UnitExhibit:
		text = exhibitHeading.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}
