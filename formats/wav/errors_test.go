// SPDX-License-Identifier: EPL-2.0

package wav

import "testing"

func TestErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{ErrNotWavFile, "not a WAV file"},
		{ErrOnlyPCMSupported, "only integer PCM WAV is supported"},
		{ErrUnsupportedLayout, "unsupported WAV layout"},
	}

	for _, tt := range tests {
		if tt.err == nil {
			t.Fatalf("error for %q is nil", tt.want)
		}
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
