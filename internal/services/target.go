package services

import (
	"forumcore/internal/models"
)

// TargetKind 可投票、可举报的内容类型
type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

// ParseTargetKind 校验外部传入的内容类型
func ParseTargetKind(s string) (TargetKind, error) {
	switch TargetKind(s) {
	case TargetPost, TargetComment:
		return TargetKind(s), nil
	}
	return "", invalid("unknown target type %q", s)
}

// target 描述一种内容在库里的位置：实体表 + 投票表，投票表通过 fkColumn 指向实体
type target struct {
	kind      TargetKind
	fkColumn  string
	voteTable string
	newEntity func() interface{}
	newVote   func(userID, targetID uint, polarity int) interface{}
}

var targets = map[TargetKind]target{
	TargetPost: {
		kind:      TargetPost,
		fkColumn:  "post_id",
		voteTable: "post_votes",
		newEntity: func() interface{} { return &models.Post{} },
		newVote: func(userID, targetID uint, polarity int) interface{} {
			return &models.PostVote{UserID: userID, PostID: targetID, Polarity: polarity}
		},
	},
	TargetComment: {
		kind:      TargetComment,
		fkColumn:  "comment_id",
		voteTable: "comment_votes",
		newEntity: func() interface{} { return &models.Comment{} },
		newVote: func(userID, targetID uint, polarity int) interface{} {
			return &models.CommentVote{UserID: userID, CommentID: targetID, Polarity: polarity}
		},
	},
}

func lookupTarget(kind TargetKind) (target, error) {
	t, ok := targets[kind]
	if !ok {
		return target{}, invalid("unknown target type %q", kind)
	}
	return t, nil
}
