package validate

import (
	"errors"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

type Validate struct {
	validate *validator.Validate
	trans    ut.Translator
}

// InitValidates wires the validator with a translator for the given locale.
func (v *Validate) InitValidates(localTrans locales.Translator, local string) {
	uni := ut.New(localTrans, localTrans)
	// this is usually known or extracted from http 'Accept-Language' header
	// also see uni.FindTranslator(...)
	v.trans, _ = uni.GetTranslator(local)

	v.validate = validator.New()

	err := en_translations.RegisterDefaultTranslations(v.validate, v.trans)
	if err != nil {
		panic(err)
	}
}

// HandleError validates r and returns the first violation, preferring the
// custom message keyed by "Field.tag" over the translated default.
func (v *Validate) HandleError(r interface{}, m map[string]string) error {
	err := v.validate.Struct(r)
	if err != nil {
		errs := err.(validator.ValidationErrors)
		for _, e := range errs {
			if _, ok := m[e.Field()+"."+e.Tag()]; ok {
				return errors.New(m[e.Field()+"."+e.Tag()])
			} else {
				tranStr := e.Translate(v.trans)
				return errors.New(tranStr)
			}
		}
	}

	return nil
}

// New validates r against its struct tags with a custom message map.
func New(r interface{}, m map[string]string, localTrans locales.Translator, local string) error {
	v := Validate{}
	v.InitValidates(localTrans, local)
	err := v.HandleError(r, m)
	return err
}

// Run validates with the default english locale.
func Run(r interface{}, m map[string]string) error {
	err := New(r, m, en.New(), "en")
	return err
}
