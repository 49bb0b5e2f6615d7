package kemet

import (
	"context"
	"io"

	"github.com/gogf/gf/v2/frame/g"
	v1 "github.com/kemet-ai/kemet/api/kemet/v1"
	"github.com/kemet-ai/kemet/core/errors"
	"github.com/kemet-ai/kemet/core/retriever"
	"github.com/kemet-ai/kemet/internal/logic/chat"
)

// Query 问答接口
func (c *ControllerV1) Query(ctx context.Context, req *v1.QueryReq) (res *v1.QueryRes, err error) {
	g.Log().Infof(ctx, "Query request received - ConversationID: %s, Images: %d, QueryLen: %d",
		req.ConversationID, len(req.Images), len(req.Query))

	images, err := readImages(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.chatService.Ask(ctx, &chat.AskRequest{
		ConversationID: req.ConversationID,
		Query:          req.Query,
		TopK:           req.TopK,
		Images:         images,
	})
	if err != nil {
		g.Log().Errorf(ctx, "query failed: %v", err)
		return nil, err
	}

	sources := make([]*v1.SourceItem, 0, len(resp.Sources))
	for _, s := range resp.Sources {
		sources = append(sources, &v1.SourceItem{
			Content: s.Content,
			File:    s.File,
			Page:    s.Page,
			Score:   s.Score,
		})
	}

	return &v1.QueryRes{
		ConversationID:    resp.ConversationID,
		Answer:            resp.Answer,
		RewrittenQuery:    resp.RewrittenQuery,
		SearchQuery:       resp.SearchQuery,
		ImageDescriptions: resp.ImageDescriptions,
		TopK:              resp.TopK,
		Sources:           sources,
	}, nil
}

// Retrieve 纯检索接口，跳过生成直接返回重排后的文档
func (c *ControllerV1) Retrieve(ctx context.Context, req *v1.RetrieveReq) (res *v1.RetrieveRes, err error) {
	g.Log().Infof(ctx, "Retrieve request received - QueryLen: %d", len(req.Query))

	result, err := c.retriever.Retrieve(ctx, &retriever.Request{
		Query: req.Query,
		TopK:  req.TopK,
	})
	if err != nil {
		g.Log().Errorf(ctx, "retrieve failed: %v", err)
		return nil, err
	}

	docs := make([]*v1.SourceItem, 0, len(result.Documents))
	for _, s := range chat.SourcesFromDocuments(result.Documents) {
		docs = append(docs, &v1.SourceItem{
			Content: s.Content,
			File:    s.File,
			Page:    s.Page,
			Score:   s.Score,
		})
	}

	return &v1.RetrieveRes{
		Documents: docs,
		Context:   result.Context,
	}, nil
}

// readImages 读取multipart图片内容
func readImages(req *v1.QueryReq) ([]chat.ImageUpload, error) {
	images := make([]chat.ImageUpload, 0, len(req.Images))
	for _, fh := range req.Images {
		if fh == nil {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			return nil, errors.Newf(errors.ErrFileReadFailed, "failed to open uploaded image %s: %v", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, errors.Newf(errors.ErrFileReadFailed, "failed to read uploaded image %s: %v", fh.Filename, err)
		}
		images = append(images, chat.ImageUpload{
			Name: fh.Filename,
			Data: data,
		})
	}
	return images, nil
}
