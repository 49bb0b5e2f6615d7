package cmd

import (
	"context"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/net/ghttp"
	"github.com/gogf/gf/v2/os/gcmd"
	"github.com/kemet-ai/kemet/core/common"
	"github.com/kemet-ai/kemet/core/config"
	"github.com/kemet-ai/kemet/core/file_store"
	"github.com/kemet-ai/kemet/core/generator"
	"github.com/kemet-ai/kemet/core/model"
	"github.com/kemet-ai/kemet/core/rerank"
	"github.com/kemet-ai/kemet/core/retriever"
	"github.com/kemet-ai/kemet/core/vector_store"
	"github.com/kemet-ai/kemet/core/vision"
	"github.com/kemet-ai/kemet/internal/controller/kemet"
	"github.com/kemet-ai/kemet/internal/dao"
	"github.com/kemet-ai/kemet/internal/logic/chat"
	"github.com/kemet-ai/kemet/internal/logic/conversation"
	"github.com/kemet-ai/kemet/internal/logic/rewriter"
)

const version = "1.0.0"

var (
	Main = gcmd.Command{
		Name:  "main",
		Usage: "main",
		Brief: "start http server",
		Func: func(ctx context.Context, parser *gcmd.Parser) (err error) {
			controller, err := buildController(ctx)
			if err != nil {
				return err
			}

			s := g.Server()
			s.Group("/api", func(group *ghttp.RouterGroup) {
				group.Middleware(MiddlewareMultipartMaxMemory, MiddlewareHandlerResponse, ghttp.MiddlewareCORS)
				group.Bind(
					controller,
				)
			})
			s.Run()
			return nil
		},
	}
)

// buildController 组装全部依赖
// 所有协作对象在这里一次性构造并通过构造函数注入，
// 不走全局注册表，依赖关系在代码里直接可见
func buildController(ctx context.Context) (*kemet.ControllerV1, error) {
	g.Log().Info(ctx, "Validating application configuration...")
	if err := config.ValidateConfiguration(ctx); err != nil {
		g.Log().Fatalf(ctx, "Configuration validation failed:\n%v", err)
	}

	if err := dao.InitDB(); err != nil {
		g.Log().Fatalf(ctx, "Database connection initialization failed: %v", err)
	}

	file_store.InitStorage()

	retrieverConf := config.LoadRetrieverConfig(ctx)
	rerankConf := config.LoadRerankConfig(ctx)
	chatConf := config.LoadChatConfig(ctx)
	visionConf := config.LoadVisionConfig(ctx)

	milvusStore, err := vector_store.InitializeMilvusStore(ctx, retrieverConf)
	if err != nil {
		g.Log().Fatalf(ctx, "Vector store initialization failed: %v", err)
	}

	scorer, err := common.NewReranker(ctx, rerankConf)
	if err != nil {
		g.Log().Fatalf(ctx, "Reranker initialization failed: %v", err)
	}
	reranker := rerank.NewReranker(scorer, rerankConf.BatchSize)

	modelService := model.NewModelService(chatConf.APIKey, chatConf.BaseURL, nil)

	queryRewriter := rewriter.NewQueryRewriter(modelService, chatConf.Model)
	describer := vision.NewDescriber(modelService, chatConf.VisionModel, visionConf)

	orchestrator := retriever.NewOrchestrator(milvusStore, reranker, queryRewriter, describer, retrieverConf)
	answerGen := generator.NewGenerator(modelService, chatConf.Model)

	convStore := conversation.NewStore()
	chatService := chat.NewService(orchestrator, answerGen, convStore, chatConf.HistoryLimit)

	g.Log().Info(ctx, "✓ All components initialized successfully")

	return kemet.NewV1(chatService, orchestrator, convStore, version), nil
}
