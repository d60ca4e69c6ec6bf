package logsink

import (
	"fmt"
	"time"
)

// DateFolderFormat organizes log blobs by day: YYYY/MM/DD
const DateFolderFormat = "%d/%02d/%02d"

func FormatDateFolder(year int, month int, day int) string {
	return fmt.Sprintf(DateFolderFormat, year, month, day)
}

// DefaultBlobName is <date folder>/<host>.jsonl for t.
func DefaultBlobName(t time.Time, host string) string {
	t = t.UTC()
	return FormatDateFolder(t.Year(), int(t.Month()), t.Day()) + "/" + host + ".jsonl"
}
