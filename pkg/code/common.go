package code

var (
	Success = NewSuss(1, lang{en: "Success", zh_cn: "成功"})
	Failed  = NewError(0, lang{en: "Failed", zh_cn: "失败"})

	ErrorServerInternal   = NewError(500, lang{en: "Internal server error", zh_cn: "服务器内部错误"})
	ErrorNotFoundAPI      = NewError(404, lang{en: "API not found", zh_cn: "接口不存在"})
	ErrorInvalidParams    = NewError(400, lang{en: "Invalid parameters", zh_cn: "参数错误"})
	ErrorTooManyRequests  = NewError(429, lang{en: "Too many requests", zh_cn: "请求过多"})
	ErrorInvalidAuthToken = NewError(401, lang{en: "Invalid or missing API token", zh_cn: "API Token 无效或缺失"})
	ErrorInvalidStorage   = NewError(1002, lang{en: "Invalid storage type", zh_cn: "无效的存储类型"})
	ErrorStorageNotReady  = NewError(1003, lang{en: "Storage is not reachable", zh_cn: "存储不可用"})
	ErrorWorkerPoolFull   = NewError(1005, lang{en: "Worker pool is full, try again later", zh_cn: "工作池已满，请稍后重试"})
	ErrorShuttingDown     = NewError(1006, lang{en: "Service is shutting down", zh_cn: "服务正在关闭"})
	ErrorScheduleNotFound = NewError(2001, lang{en: "Schedule not found", zh_cn: "计划不存在"})
	ErrorScheduleInvalid  = NewError(2002, lang{en: "Invalid schedule", zh_cn: "计划无效"})
	ErrorRunNotFound      = NewError(2004, lang{en: "No running backup for this schedule", zh_cn: "该计划没有正在运行的备份"})

	SuccessRunStarted = NewSuss(200, lang{en: "Backup run started", zh_cn: "备份任务已启动"})
	SuccessRunSkipped = NewSuss(201, lang{en: "Backup already running, skipped", zh_cn: "备份任务已在运行，已跳过"})
	SuccessRunStopped = NewSuss(202, lang{en: "Stop requested", zh_cn: "已请求停止"})
)
