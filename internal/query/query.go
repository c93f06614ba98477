// Package query turns a submission filter into parameterized SQL.
//
// Count and page statements are always derived from the same predicate so
// that a listing's total and its items can never disagree.
package query

import (
	"fmt"
	"strings"

	"github.com/R3E-Network/submission_review/internal/domain/submission"
)

// SubmissionColumns is the select list for a full submission row.
const SubmissionColumns = "id, creator_id, creator_username, video_url, platform, caption, hashtags, notes, status, admin_feedback, admin_id, submitted_at, reviewed_at, updated_at"

// Predicate is a WHERE expression with positional ($n) arguments.
type Predicate struct {
	Where string
	Args  []any
}

// Clause renders the predicate as a WHERE clause, or "" when unconstrained.
func (p Predicate) Clause() string {
	if p.Where == "" {
		return ""
	}
	return " WHERE " + p.Where
}

type builder struct {
	parts []string
	args  []any
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *builder) add(format string, v any) {
	b.parts = append(b.parts, fmt.Sprintf(format, b.bind(v)))
}

// Build composes the conjunction of every rule present in f.
func Build(f submission.Filter) Predicate {
	b := &builder{}
	if f.Status != "" {
		b.add("status = %s", string(f.Status))
	}
	if f.Platform != "" {
		b.add("platform = %s", string(f.Platform))
	}
	if f.CreatorID != "" {
		b.add("creator_id = %s", f.CreatorID)
	}
	if f.AdminID != "" {
		b.add("admin_id = %s", f.AdminID)
	}
	if f.DateFrom != nil {
		b.add("submitted_at >= %s", *f.DateFrom)
	}
	if f.DateTo != nil {
		b.add("submitted_at <= %s", *f.DateTo)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		p := b.bind("%" + EscapeLike(term) + "%")
		b.parts = append(b.parts, fmt.Sprintf("(creator_username ILIKE %[1]s OR caption ILIKE %[1]s OR notes ILIKE %[1]s)", p))
	}
	return Predicate{Where: strings.Join(b.parts, " AND "), Args: b.args}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards so term matches literally.
func EscapeLike(term string) string {
	return likeEscaper.Replace(term)
}

// Plan holds the count and page statements for one listing request.
type Plan struct {
	CountSQL   string
	CountArgs  []any
	SelectSQL  string
	SelectArgs []any
}

// Submissions plans a filtered, paginated listing ordered newest first.
// A non-positive limit selects every matching row.
func Submissions(f submission.Filter, limit, offset int) Plan {
	pred := Build(f)
	where := pred.Clause()

	selectArgs := append([]any(nil), pred.Args...)
	var sb strings.Builder
	sb.WriteString("SELECT " + SubmissionColumns + " FROM submissions" + where + " ORDER BY submitted_at DESC, id")
	if limit > 0 {
		selectArgs = append(selectArgs, limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(selectArgs))
	}
	if offset > 0 {
		selectArgs = append(selectArgs, offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(selectArgs))
	}

	return Plan{
		CountSQL:   "SELECT COUNT(*) FROM submissions" + where,
		CountArgs:  pred.Args,
		SelectSQL:  sb.String(),
		SelectArgs: selectArgs,
	}
}
