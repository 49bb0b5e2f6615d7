package errors

// ErrCode 业务错误码类型
type ErrCode int

// Kind 失败类别
// 三类结果的传播策略不同：参数错误和上游失败都向调用方传播，
// 降级结果在内部吸收，只留日志
type Kind int

const (
	// KindValidation 调用方输入违反前置条件，立即返回，不重试，不静默修正
	KindValidation Kind = iota
	// KindUpstream 外部依赖（索引/重排/LLM/识图）出错或返回异常数据
	KindUpstream
	// KindDegraded 非致命的部分失败，内部以安全默认值恢复后继续
	KindDegraded
	// KindInternal 其他内部错误
	KindInternal
)

const (
	// 通用错误 1000-1999
	ErrInvalidParameter ErrCode = 1001 // 参数错误
	ErrInternalError    ErrCode = 1003 // 内部错误
	ErrNotFound         ErrCode = 1004 // 资源未找到
	ErrOperationFailed  ErrCode = 1006 // 操作失败

	// 模型相关 2000-2999
	ErrEmbeddingFailed   ErrCode = 2003 // Embedding失败
	ErrLLMCallFailed     ErrCode = 2004 // LLM调用失败
	ErrRerankFailed      ErrCode = 2006 // Rerank失败
	ErrVisionFailed      ErrCode = 2008 // 识图失败
	ErrModelConfigError  ErrCode = 2002 // 模型配置无效
	ErrGenerationFailed  ErrCode = 2009 // 回答生成失败
	ErrRewriteDegraded   ErrCode = 2010 // 查询重写降级（内部吸收）
	ErrDescribeDegraded  ErrCode = 2011 // 单图描述降级（内部吸收）

	// 请求校验 3000-3999
	ErrEmptyQuery     ErrCode = 3001 // 查询为空
	ErrTopKOutOfRange ErrCode = 3002 // top_k 超出配置范围
	ErrTooManyImages  ErrCode = 3003 // 图片数量超限

	// 文件相关 4000-4999
	ErrFileReadFailed   ErrCode = 4007 // 文件读取失败
	ErrFileUploadFailed ErrCode = 4005 // 文件上传失败
	ErrFileDeleteFailed ErrCode = 4006 // 文件删除失败

	// 向量数据库 5000-5999
	ErrVectorStoreInit ErrCode = 5001 // 向量库初始化失败
	ErrVectorSearch    ErrCode = 5002 // 向量搜索失败

	// 数据库相关 6000-6999
	ErrDatabaseQuery  ErrCode = 6001 // 数据库查询失败
	ErrDatabaseInsert ErrCode = 6002 // 数据库插入失败
	ErrDatabaseDelete ErrCode = 6004 // 数据库删除失败
	ErrDatabaseInit   ErrCode = 6005 // 数据库初始化失败

	// 对话相关 7000-7999
	ErrConversationNotFound ErrCode = 7001 // 对话未找到
	ErrChatFailed           ErrCode = 7003 // 聊天失败

	// 检索相关 9000-9999
	ErrRetrievalFailed ErrCode = 9001 // 检索失败
)

// Kind 返回错误码所属的失败类别
func (e ErrCode) Kind() Kind {
	switch e {
	case ErrInvalidParameter, ErrEmptyQuery, ErrTopKOutOfRange, ErrTooManyImages:
		return KindValidation
	case ErrEmbeddingFailed, ErrLLMCallFailed, ErrRerankFailed, ErrVisionFailed,
		ErrGenerationFailed, ErrVectorSearch, ErrRetrievalFailed:
		return KindUpstream
	case ErrRewriteDegraded, ErrDescribeDegraded:
		return KindDegraded
	default:
		return KindInternal
	}
}

// HTTPStatusCode 返回错误码对应的HTTP状态码
func (e ErrCode) HTTPStatusCode() int {
	switch e.Kind() {
	case KindValidation:
		return 400
	case KindUpstream:
		// 上游失败与请求错误区分开，调用方据此决定是否稍后重试
		return 502
	default:
		switch e {
		case ErrNotFound, ErrConversationNotFound:
			return 404
		default:
			return 500
		}
	}
}
