package captcha

// checkboxVariant is the v2 "I'm not a robot" widget.
type checkboxVariant struct {
	r *Renderer
}

func (v checkboxVariant) scriptTag(RenderOptions) string {
	explicit := v.r.explicit()
	data := v2ScriptData{
		Loader:         v.r.v2Loader(explicit),
		Explicit:       explicit,
		OnloadCallback: onloadCallbackName,
		ElementID:      widgetElementID,
		SiteKey:        v.r.cfg.siteKey,
	}
	if explicit {
		configured := v.r.tagAttributes()
		for _, name := range TagAttributeNames {
			if value, ok := configured[name]; ok {
				data.Params = append(data.Params, jsParam{Name: name, Value: jsValue(name, value)})
			}
		}
	}
	return execute("v2_script", data)
}

func (v checkboxVariant) formSnippet(attrs map[string]string) string {
	merged := map[string]string{"id": widgetElementID}
	explicit := v.r.explicit()
	if !explicit {
		for name, value := range v.r.tagAttributes() {
			merged["data-"+name] = value
		}
	}
	for name, value := range attrs {
		merged[name] = value
	}
	if explicit {
		// rendered through grecaptcha.render, so no auto-render markers
		delete(merged, "data-sitekey")
		return "<div" + htmlAttributes(merged, "class", "id") + "></div>"
	}
	merged["class"] = mergeClass(attrs["class"])
	merged["data-sitekey"] = v.r.cfg.siteKey
	return "<div" + htmlAttributes(merged, "class", "data-sitekey") + "></div>"
}

func (checkboxVariant) formButton(string, map[string]string) string { return "" }

// invisibleVariant binds an invisible challenge to a submit button.
type invisibleVariant struct {
	r *Renderer
}

func (v invisibleVariant) scriptTag(opts RenderOptions) string {
	formID := opts.FormID
	if formID == "" {
		formID = v.r.FormID()
	}
	return execute("invisible_script", invisibleScriptData{
		Loader:         v.r.v2Loader(false),
		SubmitCallback: submitCallbackName,
		FormID:         formID,
	})
}

func (invisibleVariant) formSnippet(map[string]string) string { return "" }

func (v invisibleVariant) formButton(label string, props map[string]string) string {
	if label == "" {
		label = DefaultButtonLabel
	}
	attrs := map[string]string{"data-callback": submitCallbackName}
	for name, value := range props {
		attrs[name] = value
	}
	attrs["class"] = mergeClass(props["class"])
	attrs["data-sitekey"] = v.r.cfg.siteKey
	return "<button" + htmlAttributes(attrs) + ">" + label + "</button>"
}
