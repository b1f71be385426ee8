package captcha

type v3Variant struct {
	r *Renderer
}

func (v v3Variant) scriptTag(opts RenderOptions) string {
	action := opts.Action
	if action == "" {
		action = DefaultAction
	}
	data := v3ScriptData{
		Loader:           v.r.v3Loader(),
		SiteKey:          v.r.cfg.siteKey,
		Action:           action,
		CustomValidation: opts.CustomValidation,
	}
	if opts.CustomValidation == "" {
		data.CallbackThen = opts.CallbackThen
		data.CallbackCatch = opts.CallbackCatch
		data.ValidationURLWithToken = v.r.ValidationURLWithToken()
	}
	return execute("v3_script", data)
}

func (v3Variant) formSnippet(map[string]string) string        { return "" }
func (v3Variant) formButton(string, map[string]string) string { return "" }
