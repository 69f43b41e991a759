package memo

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"
)

const (
	DirName    = "Voice Recorder"
	filePrefix = "RECORDING_"
)

// OutputPath names a new recording under root, e.g.
// root/Voice Recorder/RECORDING_20240131_235959042.flac.
func OutputPath(root string, t time.Time, ext string) string {
	stamp := t.Format("20060102_150405") + fmt.Sprintf("%03d", t.Nanosecond()/int(time.Millisecond))
	return filepath.Join(root, DirName, filePrefix+stamp+"."+ext)
}

// FileURI turns a path into a file:// reference.
func FileURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
