package restyutil

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

// DumpMessages writes every completed request/response pair of client to
// output, named "<prefix>-<n>.txt". `output` can be nil, in which case the
// function is a no-op.
func DumpMessages(client *resty.Client, prefix string, output InstrumentOutput) {
	if output == nil {
		return
	}

	var idcounter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := atomic.AddUint64(&idcounter, 1)
		name := fmt.Sprintf("%s-%04d-%s.txt", prefix, id, strings.ToLower(res.Request.Method))
		output.Write(name, formatHttpMessage(res))
		return nil
	})
}
