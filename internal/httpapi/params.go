package httpapi

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/submission_review/internal/domain/submission"
	svcerrors "github.com/R3E-Network/submission_review/internal/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	dateLayout      = "2006-01-02"

	// maxPage keeps (page-1)*pageSize well inside int range.
	maxPage = 1_000_000
)

type listParams struct {
	Filter   submission.Filter
	Page     int
	PageSize int
}

func (p listParams) limitOffset() (int, int) {
	return p.PageSize, (p.Page - 1) * p.PageSize
}

func totalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}

func parseListParams(q url.Values, loc *time.Location) (listParams, error) {
	p := listParams{Page: 1, PageSize: defaultPageSize}

	var err error
	if p.Page, err = intParam(q, "page", 1); err != nil {
		return p, err
	}
	if p.Page < 1 || p.Page > maxPage {
		return p, svcerrors.Validationf("page must be between 1 and %d", maxPage)
	}
	if p.PageSize, err = intParam(q, "pageSize", defaultPageSize); err != nil {
		return p, err
	}
	if p.PageSize < 1 || p.PageSize > maxPageSize {
		return p, svcerrors.Validationf("pageSize must be between 1 and %d", maxPageSize)
	}

	if raw := q.Get("status"); raw != "" {
		if p.Filter.Status, err = submission.ParseStatus(raw); err != nil {
			return p, err
		}
	}
	if raw := q.Get("platform"); raw != "" {
		if p.Filter.Platform, err = submission.ParsePlatform(raw); err != nil {
			return p, err
		}
	}
	if p.Filter.CreatorID, err = idParam(q, "creatorId"); err != nil {
		return p, err
	}
	if p.Filter.AdminID, err = idParam(q, "adminId"); err != nil {
		return p, err
	}
	p.Filter.Search = strings.TrimSpace(q.Get("search"))

	if raw := q.Get("dateFrom"); raw != "" {
		t, err := parseDate(raw, loc, false)
		if err != nil {
			return p, err
		}
		p.Filter.DateFrom = &t
	}
	if raw := q.Get("dateTo"); raw != "" {
		t, err := parseDate(raw, loc, true)
		if err != nil {
			return p, err
		}
		p.Filter.DateTo = &t
	}
	if p.Filter.DateFrom != nil && p.Filter.DateTo != nil && p.Filter.DateFrom.After(*p.Filter.DateTo) {
		return p, svcerrors.Validation("dateFrom must not be after dateTo")
	}
	return p, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, svcerrors.Validationf("%s must be an integer", name)
	}
	return n, nil
}

// idParam returns an optional UUID filter value in canonical form.
func idParam(q url.Values, name string) (string, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return "", nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", svcerrors.Validationf("%s must be a UUID", name)
	}
	return id.String(), nil
}

// parseDate accepts RFC3339 timestamps or bare dates. A bare date used as an
// upper bound covers the whole day.
func parseDate(raw string, loc *time.Location, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	d, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, svcerrors.Validationf("invalid date %q: use RFC3339 or YYYY-MM-DD", raw)
	}
	if endOfDay {
		d = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return d.UTC(), nil
}
