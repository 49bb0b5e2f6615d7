package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/gogf/gf/v2/frame/g"
)

// ValidateConfiguration validates all required configuration items
func ValidateConfiguration(ctx context.Context) error {
	var missingConfigs []string
	var warnings []string

	// 验证 Milvus 配置
	milvusAddress := g.Cfg().MustGet(ctx, "milvus.address", "").String()
	if milvusAddress == "" {
		missingConfigs = append(missingConfigs, "milvus.address")
	}

	// 验证 Embedding 配置
	if g.Cfg().MustGet(ctx, "embedding.apiKey", "").String() == "" {
		missingConfigs = append(missingConfigs, "embedding.apiKey")
	}
	if g.Cfg().MustGet(ctx, "embedding.baseURL", "").String() == "" {
		missingConfigs = append(missingConfigs, "embedding.baseURL")
	}
	if g.Cfg().MustGet(ctx, "embedding.model", "").String() == "" {
		missingConfigs = append(missingConfigs, "embedding.model")
	}

	// 验证 Rerank 配置
	if g.Cfg().MustGet(ctx, "rerank.baseURL", "").String() == "" {
		missingConfigs = append(missingConfigs, "rerank.baseURL")
	}

	// 验证 Chat 配置（缺失时退化为纯检索服务，只告警）
	if g.Cfg().MustGet(ctx, "chat.apiKey", "").String() == "" {
		warnings = append(warnings, "chat.apiKey is not set")
	}
	if g.Cfg().MustGet(ctx, "chat.baseURL", "").String() == "" {
		warnings = append(warnings, "chat.baseURL is not set")
	}
	if g.Cfg().MustGet(ctx, "chat.model", "").String() == "" {
		warnings = append(warnings, "chat.model is not set")
	}

	// 验证数据库配置
	if g.Cfg().MustGet(ctx, "database.default.host", "").String() == "" {
		missingConfigs = append(missingConfigs, "database.default.host")
	}
	if g.Cfg().MustGet(ctx, "database.default.name", "").String() == "" {
		missingConfigs = append(missingConfigs, "database.default.name")
	}

	if len(warnings) > 0 {
		g.Log().Warningf(ctx, "Configuration warnings:\n- %s", strings.Join(warnings, "\n- "))
	}

	if len(missingConfigs) > 0 {
		return fmt.Errorf("missing required configuration items:\n- %s\n\nPlease check your config.yaml file and ensure all required settings are properly configured", strings.Join(missingConfigs, "\n- "))
	}

	g.Log().Info(ctx, "✓ All required configuration items are present")

	return nil
}

// RetrieverConfig Retriever专用配置
// TopK 为粗召回宽度，RerankTopK 为重排后的最终宽度，两者相互独立
type RetrieverConfig struct {
	MetricType     string // 向量相似度度量类型，如 "COSINE", "L2", "IP" 等，默认 "COSINE"
	APIKey         string // API密钥（用于调用embedding服务）
	BaseURL        string // API基础URL（用于调用embedding服务）
	EmbeddingModel string // Embedding模型名称
	Dimension      int    // 向量维度

	TopK       int // 粗召回数量（默认 30）
	MinTopK    int // top_k 下界（默认 1），越界请求直接报错而不是静默截断
	MaxTopK    int // top_k 上界（默认 100）
	RerankTopK int // 重排后保留数量（默认 8）
}

// LoadRetrieverConfig 从配置文件加载检索配置
func LoadRetrieverConfig(ctx context.Context) *RetrieverConfig {
	return &RetrieverConfig{
		MetricType:     g.Cfg().MustGet(ctx, "milvus.metricType", "COSINE").String(),
		APIKey:         g.Cfg().MustGet(ctx, "embedding.apiKey").String(),
		BaseURL:        g.Cfg().MustGet(ctx, "embedding.baseURL").String(),
		EmbeddingModel: g.Cfg().MustGet(ctx, "embedding.model").String(),
		Dimension:      g.Cfg().MustGet(ctx, "embedding.dimension", 1024).Int(),
		TopK:           g.Cfg().MustGet(ctx, "retriever.topK", 30).Int(),
		MinTopK:        g.Cfg().MustGet(ctx, "retriever.minTopK", 1).Int(),
		MaxTopK:        g.Cfg().MustGet(ctx, "retriever.maxTopK", 100).Int(),
		RerankTopK:     g.Cfg().MustGet(ctx, "retriever.rerankTopK", 8).Int(),
	}
}

// RerankConfig 重排服务配置
type RerankConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	BatchSize int // 单次打分批大小，限制上游请求体与显存占用
}

// LoadRerankConfig 从配置文件加载重排配置
func LoadRerankConfig(ctx context.Context) *RerankConfig {
	return &RerankConfig{
		APIKey:    g.Cfg().MustGet(ctx, "rerank.apiKey").String(),
		BaseURL:   g.Cfg().MustGet(ctx, "rerank.baseURL").String(),
		Model:     g.Cfg().MustGet(ctx, "rerank.model", "bge-reranker-base").String(),
		BatchSize: g.Cfg().MustGet(ctx, "rerank.batchSize", 30).Int(),
	}
}

// ChatConfig 对话模型配置
type ChatConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	VisionModel  string // 识图模型，默认与对话模型相同
	HistoryLimit int    // 取历史消息条数（默认 10）
}

// LoadChatConfig 从配置文件加载对话模型配置
func LoadChatConfig(ctx context.Context) *ChatConfig {
	model := g.Cfg().MustGet(ctx, "chat.model").String()
	return &ChatConfig{
		APIKey:       g.Cfg().MustGet(ctx, "chat.apiKey").String(),
		BaseURL:      g.Cfg().MustGet(ctx, "chat.baseURL").String(),
		Model:        model,
		VisionModel:  g.Cfg().MustGet(ctx, "chat.visionModel", model).String(),
		HistoryLimit: g.Cfg().MustGet(ctx, "chat.historyLimit", 10).Int(),
	}
}

// VisionConfig 识图配置
type VisionConfig struct {
	Prompt    string // 身份提示词
	MaxImages int    // 单次请求最多处理图片数
}

// LoadVisionConfig 从配置文件加载识图配置
func LoadVisionConfig(ctx context.Context) *VisionConfig {
	return &VisionConfig{
		Prompt: g.Cfg().MustGet(ctx, "vision.prompt",
			"Just tell me who is the king or queen in this image. "+
				"No need to explain yourself or add more text or details. "+
				"Just give me the name directly and accurately.").String(),
		MaxImages: g.Cfg().MustGet(ctx, "vision.maxImages", 5).Int(),
	}
}

// RetrieverConfig 实现 embedding config 接口
func (c *RetrieverConfig) GetAPIKey() string         { return c.APIKey }
func (c *RetrieverConfig) GetBaseURL() string        { return c.BaseURL }
func (c *RetrieverConfig) GetEmbeddingModel() string { return c.EmbeddingModel }

// RerankConfig 实现 rerank config 接口
func (c *RerankConfig) GetRerankAPIKey() string  { return c.APIKey }
func (c *RerankConfig) GetRerankBaseURL() string { return c.BaseURL }
func (c *RerankConfig) GetRerankModel() string   { return c.Model }
