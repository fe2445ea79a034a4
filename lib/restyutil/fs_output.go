package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// FilesystemOutput dumps one file per HTTP exchange into a directory, used
// when debugging what the portal actually sent back.
type FilesystemOutput struct {
	directory string
	counter   *uint64
}

func NewFilesystemOutput(dir string) FilesystemOutput {
	os.RemoveAll(dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		panic(err)
	}
	var counter uint64
	return FilesystemOutput{directory: dir, counter: &counter}
}

func (o FilesystemOutput) write(id string, contents []byte) {
	err := os.WriteFile(filepath.Join(o.directory, id), contents, 0600)
	if err != nil {
		slog.Warn("failed to write http exchange dump", "id", id, "err", err)
	}
}

// CaptureClient records every response body the client receives.
func (o FilesystemOutput) CaptureClient(client *resty.Client) {
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := strconv.FormatUint(atomic.AddUint64(o.counter, 1), 10)
		header := fmt.Sprintf(
			"%s %s\nstatus: %d\n\n",
			res.Request.Method, res.Request.URL, res.StatusCode(),
		)
		o.write(id+".http", append([]byte(header), res.Body()...))
		return nil
	})
}
