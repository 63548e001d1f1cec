// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package stamp

import (
	"fmt"
	"os"
)

// WriteFile stores the raw response bytes at path, verbatim.  The file must
// not already exist: a stamp is never overwritten.
func WriteFile(path string, raw []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating stamp file: %w", err)
	}

	if _, err = f.Write(raw); err != nil {
		f.Close()
		return fmt.Errorf("writing stamp file: %w", err)
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("closing stamp file: %w", err)
	}

	return nil
}

// ReadFile returns the raw response bytes stored at path
func ReadFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stamp file: %w", err)
	}

	return raw, nil
}
