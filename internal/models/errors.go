package models

import "embers/internal/utils"

var (
	ErrEntryNotFound = utils.NewEmbersError("journal entry not found")
)
