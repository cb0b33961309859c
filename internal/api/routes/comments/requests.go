package comments

type PostCommentRequest struct {
	Text string `json:"text"`
}

type EditCommentRequest struct {
	Text string `json:"text"`
}
