package handler

import (
	"wordclash/backend/internal/chat"
	"wordclash/backend/internal/match"
	"wordclash/backend/internal/sessionlock"
)

// Service singletons wired in main, mirroring database.DB.
var (
	Chats   *chat.Coordinator
	Matches *match.Service
	Locks   *sessionlock.Service
)
