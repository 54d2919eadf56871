//go:build !windows

package volume

import (
	"github.com/everidx/everidx/pkg/types"
)

// Drive is only available on Windows hosts; other platforms work against
// volume images via OpenImage.
type Drive struct {
	*Reader
	Letter byte
}

func (d *Drive) Close() error { return nil }

// OpenDrive is unsupported off Windows.
func OpenDrive(letter byte) (*Drive, error) {
	return nil, &types.Error{Kind: types.ErrKindUnsupported,
		Msg: "raw volume access requires Windows"}
}

// DriveLetters returns nil; there are no logical drives to enumerate.
func DriveLetters() []byte { return nil }
