package race

import "errors"

var (
	ErrNotFound       = errors.New("race_not_found")
	ErrNotAuthorized  = errors.New("not_authorized")
	ErrInvalidState   = errors.New("invalid_race_state")
	ErrAlreadyJoined  = errors.New("already_joined")
	ErrNotParticipant = errors.New("not_a_participant")
	ErrNotAssetOwner  = errors.New("not_asset_owner")
	ErrWrongAssetType = errors.New("wrong_asset_type")
	ErrZeroStake      = errors.New("zero_stake")
)
