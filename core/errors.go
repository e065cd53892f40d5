package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）与 errors.Is
//
// 使用场景：
//   - 数据集：EMPTY_CATALOG
//   - 训练：INSUFFICIENT_DATA
//   - 评估：NO_PREDICTIONS
//   - Store：NOT_FOUND, NOT_SUPPORTED
type DomainError struct {
	Code    string // 错误代码（如 "EMPTY_CATALOG", "NOT_FOUND"）
	Message string // 错误消息
	Module  string // 模块名称（如 "dataset", "model", "store"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is 让 errors.Is 按 Module + Code 匹配，而不是按指针。
// 这样 NewDomainError(ModuleModel, ErrorCodeInsufficientData, "...") 与
// ErrInsufficientData 视为同一类错误。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Module == t.Module && e.Code == t.Code
}

// IsDomainError 检查错误是否为 DomainError 类型（支持 %w 包装）
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取 DomainError，如果不是则返回 nil。
// 会沿着 Unwrap 链查找，fmt.Errorf("...: %w", err) 包装后仍可识别。
func GetDomainError(err error) *DomainError {
	for err != nil {
		if domainErr, ok := err.(*DomainError); ok {
			return domainErr
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = u.Unwrap()
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	// 训练链路错误代码
	ErrorCodeEmptyCatalog     = "EMPTY_CATALOG"     // 没有物品/用户可用于构建数据集
	ErrorCodeInsufficientData = "INSUFFICIENT_DATA" // 训练表为空或过小
	ErrorCodeNoPredictions    = "NO_PREDICTIONS"    // 评估时没有可用的预测
)

// 模块名称常量
const (
	ModuleStore    = "store"    // 存储模块
	ModuleDataset  = "dataset"  // 数据集构建
	ModuleModel    = "model"    // 隐因子模型
	ModuleContent  = "content"  // 内容相似度
	ModuleEval     = "eval"     // 评估
	ModuleSource   = "source"   // 外部数据源
	ModulePipeline = "pipeline" // 训练流程
)

// 训练链路错误定义
var (
	// ErrEmptyCatalog 表示物品目录为空，无法构建数据集或相似度矩阵（致命，终止本次运行）
	ErrEmptyCatalog = NewDomainError(ModuleDataset, ErrorCodeEmptyCatalog, "dataset: catalog is empty")

	// ErrInsufficientData 表示训练表为空或不足以切分（致命）
	ErrInsufficientData = NewDomainError(ModuleModel, ErrorCodeInsufficientData, "model: insufficient training data")

	// ErrNoPredictions 表示评估输入中没有任何预测（只影响本次评估调用）
	ErrNoPredictions = NewDomainError(ModuleEval, ErrorCodeNoPredictions, "eval: no predictions to evaluate")
)

// 通用错误检查函数

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	return hasCode(err, ErrorCodeNotSupported)
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrorCodeInvalidInput)
}

// IsEmptyCatalog 检查错误是否为 EMPTY_CATALOG（不区分模块，content 与 dataset 都会返回）
func IsEmptyCatalog(err error) bool {
	return hasCode(err, ErrorCodeEmptyCatalog)
}

// IsInsufficientData 检查错误是否为 INSUFFICIENT_DATA
func IsInsufficientData(err error) bool {
	return hasCode(err, ErrorCodeInsufficientData)
}

// IsNoPredictions 检查错误是否为 NO_PREDICTIONS
func IsNoPredictions(err error) bool {
	return hasCode(err, ErrorCodeNoPredictions)
}

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}
