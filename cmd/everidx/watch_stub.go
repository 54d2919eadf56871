//go:build !windows

package main

import (
	"github.com/everidx/everidx/pkg/types"
)

func runWatch(spec string) error {
	return &types.Error{Kind: types.ErrKindUnsupported,
		Msg: "watch tails a live volume's change journal and is only available on Windows"}
}
