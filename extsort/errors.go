package extsort

import (
	"fmt"

	"tpchjoin/errs"
)

func errRecordTooLarge() error {
	return fmt.Errorf("merged record: %w", errs.ErrRecordTooLarge)
}
