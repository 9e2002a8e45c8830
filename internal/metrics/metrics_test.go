package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOperation(t *testing.T) {
	okBefore := testutil.ToFloat64(operationsTotal.WithLabelValues("mkdir", ResultSuccess))
	errBefore := testutil.ToFloat64(operationsTotal.WithLabelValues("mkdir", ResultError))

	RecordOperation("mkdir", time.Millisecond, nil)
	RecordOperation("mkdir", time.Millisecond, errors.New("boom"))
	RecordOperation("mkdir", time.Millisecond, nil)

	assert.Equal(t, okBefore+2, testutil.ToFloat64(operationsTotal.WithLabelValues("mkdir", ResultSuccess)))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(operationsTotal.WithLabelValues("mkdir", ResultError)))
}

func TestRecordBytes(t *testing.T) {
	readBefore := testutil.ToFloat64(bytesRead)
	writeBefore := testutil.ToFloat64(bytesWritten)

	RecordRead(5)
	RecordWrite(7)

	assert.Equal(t, readBefore+5, testutil.ToFloat64(bytesRead))
	assert.Equal(t, writeBefore+7, testutil.ToFloat64(bytesWritten))
}

func TestSetEntries(t *testing.T) {
	SetEntries(2, 3, 42)

	assert.Equal(t, 2.0, testutil.ToFloat64(entries.WithLabelValues("directory")))
	assert.Equal(t, 3.0, testutil.ToFloat64(entries.WithLabelValues("file")))
	assert.Equal(t, 42.0, testutil.ToFloat64(contentBytes))
}

func TestHandler(t *testing.T) {
	RecordOperation("getattr", time.Microsecond, nil)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "lsysfs_operations_total")
}
