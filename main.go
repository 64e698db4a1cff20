package main

import (
	"errors"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Partial failures were already reported per image.
		if errors.Is(err, errImagesFailed) {
			os.Exit(1)
		}

		exitOnError(err)
	}
}
