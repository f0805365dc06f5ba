package matchdb

import "errors"

var (
	ErrQueryFailed  = errors.New("beatmap query failed")
	ErrInsertFailed = errors.New("beatmap insert failed")
	ErrMissingHash  = errors.New("beatmap has no md5")
)
