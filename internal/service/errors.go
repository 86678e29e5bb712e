package service

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrSubscriberNotFound   = errors.New("subscriber not found")
	ErrSubscriberBlocked    = errors.New("subscriber is blocked")
	ErrCycleInProgress      = errors.New("recheck cycle already in progress")
	ErrEmptyVariant         = errors.New("variant name is empty")
	ErrEmptyMessage         = errors.New("message text is empty")
	ErrDeliveryFailed       = errors.New("message delivery failed")
)
