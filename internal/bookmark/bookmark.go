package bookmark

import (
	"slices"
	"strings"
	"time"
)

// CopyTag marks a record that was created by a previous sync run. Records
// carrying it are never posted again, in either direction.
const CopyTag = "*copy"

// DateFormat is the YYYYMMDD layout used for Record.Date and the Hatena feed query.
const DateFormat = "20060102"

// Record is a bookmark in transit between the two services.
type Record struct {
	Title       string
	URL         string
	Date        string
	Subjects    []string
	Description string
}

// IsCopy reports whether the record already carries the copy tag.
func (r Record) IsCopy() bool {
	return slices.Contains(r.Subjects, CopyTag)
}

// WithCopyTag returns r with CopyTag appended to its subjects. The
// receiver's subject slice is not modified.
func (r Record) WithCopyTag() Record {
	tags := make([]string, 0, len(r.Subjects)+1)
	tags = append(tags, r.Subjects...)
	r.Subjects = append(tags, CopyTag)
	return r
}

// FormatDate renders t as YYYYMMDD, the date form used in feed URLs and records.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// Comment renders the Hatena bookmark comment for r: each subject in
// brackets, the bracketed copy tag, then the description.
func Comment(r Record) string {
	var sb strings.Builder
	for _, tag := range r.Subjects {
		sb.WriteString("[")
		sb.WriteString(tag)
		sb.WriteString("]")
	}
	sb.WriteString("[" + CopyTag + "]")
	sb.WriteString(r.Description)
	return sb.String()
}
