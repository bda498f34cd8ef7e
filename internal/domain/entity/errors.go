package entity

import "errors"

var (
	// ErrEmptyTopic indicates a pipeline run was started without a topic.
	ErrEmptyTopic = errors.New("topic is empty")

	// ErrEmptyPost indicates the generator produced no text.
	ErrEmptyPost = errors.New("post text is empty")

	// ErrEmptyPicture indicates no picture was attached before delivery.
	ErrEmptyPicture = errors.New("post picture is empty")
)
