package clause

import (
	"cmp"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/poiesic/clausematch/core"
)

// Variant names the side of a verification a store belongs to.
type Variant int

const (
	// Standard is the reference contract.
	Standard Variant = iota + 1
	// User is the submitted contract being checked.
	User
)

// String returns "standard" or "user".
func (v Variant) String() string {
	switch v {
	case Standard:
		return "standard"
	case User:
		return "user"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// ParseVariant converts "standard" or "user" to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard":
		return Standard, nil
	case "user":
		return User, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

// Store is an immutable, ordered collection of clause records.
type Store struct {
	variant  Variant
	records  []core.ClauseRecord
	byID     map[string]int
	articles []*Article
	byParent map[string]int
}

// NewStore validates and copies records into a new Store.
// TextNorm defaults to TextRaw, ParentID defaults to ID and a zero UnitType
// defaults to UnitClause. Records are kept in (OrderIndex, ID) order.
func NewStore(variant Variant, records []core.ClauseRecord) (*Store, error) {
	if variant != Standard && variant != User {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVariant, variant)
	}

	s := &Store{
		variant:  variant,
		records:  make([]core.ClauseRecord, 0, len(records)),
		byID:     make(map[string]int, len(records)),
		byParent: make(map[string]int),
	}

	seen := make(map[string]struct{}, len(records))
	for i := range records {
		r := records[i]
		r.ID = strings.TrimSpace(r.ID)
		if r.UnitType == 0 {
			r.UnitType = core.UnitClause
		}
		if err := core.ValidateClauseRecord(&r); err != nil {
			return nil, err
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateClauseID, r.ID)
		}
		seen[r.ID] = struct{}{}

		if strings.TrimSpace(r.TextNorm) == "" {
			r.TextNorm = r.TextRaw
		}
		if strings.TrimSpace(r.ParentID) == "" {
			r.ParentID = r.ID
		}
		if r.Embedding != nil {
			r.Embedding = slices.Clone(r.Embedding)
		}
		s.records = append(s.records, r)
	}

	slices.SortStableFunc(s.records, func(a, b core.ClauseRecord) int {
		if c := cmp.Compare(a.OrderIndex, b.OrderIndex); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	for i, r := range s.records {
		s.byID[r.ID] = i
		idx, ok := s.byParent[r.ParentID]
		if !ok {
			idx = len(s.articles)
			s.byParent[r.ParentID] = idx
			s.articles = append(s.articles, &Article{
				ParentID:   r.ParentID,
				OrderIndex: r.OrderIndex,
			})
		}
		a := s.articles[idx]
		a.Records = append(a.Records, r)
		if a.Title == "" {
			a.Title = strings.TrimSpace(r.Title)
		}
	}
	for _, a := range s.articles {
		a.Number = ArticleNumber(a.ParentID, a.Title)
	}

	return s, nil
}

// Variant returns the contract side of the store.
func (s *Store) Variant() Variant {
	return s.variant
}

// Len returns the number of records.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Records returns a copy of the records in document order.
func (s *Store) Records() []core.ClauseRecord {
	if s == nil {
		return nil
	}
	return slices.Clone(s.records)
}

// Get returns the record with the given ID.
func (s *Store) Get(id string) (core.ClauseRecord, bool) {
	if s == nil {
		return core.ClauseRecord{}, false
	}
	idx, ok := s.byID[id]
	if !ok {
		return core.ClauseRecord{}, false
	}
	return s.records[idx], true
}

// Articles returns the records grouped by ParentID, in order of first appearance.
// The returned articles share the store's memory and must not be modified.
func (s *Store) Articles() []*Article {
	if s == nil {
		return nil
	}
	return slices.Clone(s.articles)
}

// Article returns the article with the given ParentID.
func (s *Store) Article(parentID string) (*Article, bool) {
	if s == nil {
		return nil, false
	}
	idx, ok := s.byParent[parentID]
	if !ok {
		return nil, false
	}
	return s.articles[idx], true
}

// WithEmbeddings returns a new Store whose records carry the given vectors.
// Records absent from vectors keep their current embedding.
func (s *Store) WithEmbeddings(vectors map[string][]float32) (*Store, error) {
	records := s.Records()
	for i := range records {
		if v, ok := vectors[records[i].ID]; ok {
			records[i].Embedding = v
		}
	}
	return NewStore(s.variant, records)
}

// Article is an article-level group of records sharing one ParentID.
type Article struct {
	ParentID   string
	Title      string
	Number     int
	OrderIndex int
	Records    []core.ClauseRecord
}

// Text joins the raw text of the article's records.
func (a *Article) Text() string {
	parts := make([]string, len(a.Records))
	for i, r := range a.Records {
		parts[i] = r.TextRaw
	}
	return strings.Join(parts, "\n")
}

// QueryText joins the query text of the article's records.
func (a *Article) QueryText() string {
	parts := make([]string, len(a.Records))
	for i, r := range a.Records {
		parts[i] = r.QueryText()
	}
	return strings.Join(parts, " ")
}

// Embedding returns the unit-length centroid of the record embeddings, or nil
// when no record has one.
func (a *Article) Embedding() []float32 {
	var sum []float32
	n := 0
	for _, r := range a.Records {
		if !r.HasEmbedding() {
			continue
		}
		if sum == nil {
			sum = make([]float32, len(r.Embedding))
		}
		if len(r.Embedding) != len(sum) {
			continue
		}
		for i, v := range r.Embedding {
			sum[i] += v
		}
		n++
	}
	if n == 0 {
		return nil
	}
	var norm float64
	for _, v := range sum {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return sum
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range sum {
		sum[i] *= scale
	}
	return sum
}

// AsRecord collapses the article into a single article-typed record.
func (a *Article) AsRecord() core.ClauseRecord {
	if len(a.Records) == 1 && a.Records[0].ID == a.ParentID {
		r := a.Records[0]
		r.UnitType = core.UnitArticle
		r.Embedding = a.Embedding()
		return r
	}
	norm := make([]string, len(a.Records))
	for i, r := range a.Records {
		norm[i] = r.NormalizedText()
	}
	return core.ClauseRecord{
		ID:         a.ParentID,
		ParentID:   a.ParentID,
		Title:      a.Title,
		TextRaw:    a.Text(),
		TextNorm:   strings.Join(norm, "\n"),
		UnitType:   core.UnitArticle,
		OrderIndex: a.OrderIndex,
		Embedding:  a.Embedding(),
	}
}

var (
	koreanArticleNumber = regexp.MustCompile(`제\s*(\d+)\s*조`)
	latinArticleNumber  = regexp.MustCompile(`(?i)\b(?:article|art\.?|section)\s*(\d+)`)
	firstDigitRun       = regexp.MustCompile(`\d+`)
)

// ArticleNumber extracts the article number used for deterministic ordering.
// The title is tried before the parent id; "제5조" and "Article 5" both yield 5.
// Unnumbered articles return math.MaxInt so they sort after numbered ones.
func ArticleNumber(parentID, title string) int {
	for _, s := range []string{title, parentID} {
		for _, re := range []*regexp.Regexp{koreanArticleNumber, latinArticleNumber} {
			if m := re.FindStringSubmatch(s); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					return n
				}
			}
		}
	}
	if m := firstDigitRun.FindString(parentID); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n
		}
	}
	return math.MaxInt
}
