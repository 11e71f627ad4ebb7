package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTrans "github.com/go-playground/validator/v10/translations/en"
	zhTrans "github.com/go-playground/validator/v10/translations/zh"
)

// gin binding validator的替换，带上翻译器，错误信息可按语言输出

var (
	once  sync.Once
	trans ut.Translator
)

// LazyInitGinValidator 初始化gin的validator和对应语言的翻译器
// language: "zh" 或 "en"
func LazyInitGinValidator(language string) {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		// 用json tag作为字段名，错误信息对客户端更友好
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		enLoc := en.New()
		zhLoc := zh.New()
		uni := ut.New(enLoc, enLoc, zhLoc)

		var err error
		switch language {
		case "zh":
			trans, _ = uni.GetTranslator("zh")
			err = zhTrans.RegisterDefaultTranslations(v, trans)
		default:
			trans, _ = uni.GetTranslator("en")
			err = enTrans.RegisterDefaultTranslations(v, trans)
		}
		if err != nil {
			trans = nil
		}
	})
}

// Translate 把validator错误翻译成可读的提示
func Translate(err error) string {
	if err == nil {
		return ""
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok || trans == nil {
		return err.Error()
	}
	var sb strings.Builder
	for i, e := range errs {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(e.Translate(trans))
	}
	return sb.String()
}
