package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/kemet-ai/kemet/core/config"
	"github.com/kemet-ai/kemet/core/errors"
	"github.com/kemet-ai/kemet/core/model"
	"golang.org/x/sync/errgroup"
)

// ChatModel 识图所需的最小模型调用能力
type ChatModel interface {
	ChatCompletionText(ctx context.Context, params model.ChatCompletionParams) (string, error)
}

// Describer 识图服务
// 批量描述图片内容，单图失败不影响其他图片
type Describer struct {
	chatModel   ChatModel
	visionModel string
	prompt      string
	maxImages   int
}

// NewDescriber 创建识图服务
func NewDescriber(chatModel ChatModel, visionModel string, conf *config.VisionConfig) *Describer {
	return &Describer{
		chatModel:   chatModel,
		visionModel: visionModel,
		prompt:      conf.Prompt,
		maxImages:   conf.MaxImages,
	}
}

// DescribeImages 并行描述一批图片
// 返回结果与输入同序。单图失败写入占位符 "[Image N processing failed: ...]"
// 而不是中断整批，占位符保留原位置供调用方判断哪张图失败
func (d *Describer) DescribeImages(ctx context.Context, images [][]byte) ([]string, error) {
	if len(images) == 0 {
		return []string{}, nil
	}
	if len(images) > d.maxImages {
		return nil, errors.Newf(errors.ErrTooManyImages, "at most %d images per request, got %d", d.maxImages, len(images))
	}

	hints := make([]string, len(images))

	eg, gCtx := errgroup.WithContext(ctx)
	for i, img := range images {
		i, img := i, img
		eg.Go(func() error {
			desc, err := d.describeOne(gCtx, img)
			if err != nil {
				// 占位符用1-based序号，和用户看到的图片顺序一致
				g.Log().Warningf(gCtx, "image %d description degraded: %v", i+1, err)
				hints[i] = fmt.Sprintf("[Image %d processing failed: %v]", i+1, err)
				return nil
			}
			hints[i] = desc
			return nil
		})
	}

	// 所有goroutine都吞掉自身错误，Wait只在ctx取消时返回非nil
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return hints, nil
}

// describeOne 描述单张图片
func (d *Describer) describeOne(ctx context.Context, img []byte) (string, error) {
	if len(img) == 0 {
		return "", errors.New(errors.ErrDescribeDegraded, "empty image data")
	}

	mimeType := http.DetectContentType(img)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", errors.Newf(errors.ErrDescribeDegraded, "unsupported content type: %s", mimeType)
	}

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(img)

	messages := []*schema.Message{
		{
			Role: schema.User,
			MultiContent: []schema.ChatMessagePart{
				{
					Type: schema.ChatMessagePartTypeText,
					Text: d.prompt,
				},
				{
					Type: schema.ChatMessagePartTypeImageURL,
					ImageURL: &schema.ChatMessageImageURL{
						URL:    dataURL,
						Detail: schema.ImageURLDetailAuto,
					},
				},
			},
		},
	}

	desc, err := d.chatModel.ChatCompletionText(ctx, model.ChatCompletionParams{
		ModelName:           d.visionModel,
		Messages:            messages,
		Temperature:         0.1,
		MaxCompletionTokens: 100,
	})
	if err != nil {
		return "", err
	}

	desc = strings.TrimSpace(desc)
	if desc == "" {
		return "", errors.New(errors.ErrDescribeDegraded, "model returned empty description")
	}
	return desc, nil
}
