//go:build !pprof

package profile

import "testing"

func TestDisabled(t *testing.T) {
	if Enabled() {
		t.Error("profiling enabled without the pprof tag")
	}

	stop := New(WithMode("cpu")).Start()
	if _, ok := stop.(ignore); !ok {
		t.Errorf("Start() = %T, want no-op", stop)
	}
}
