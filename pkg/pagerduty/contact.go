package pagerduty

var contactMethodLabels = map[string]string{
	"email_contact_method": "Email",
	"phone_contact_method": "Phone",
	"sms_contact_method":   "Text",
}

// LabelContactMethod returns the contact method with its display label set.
// Types without a label collapse to an empty ContactMethod so unknown channels
// never reach the caller.
func LabelContactMethod(method ContactMethod) ContactMethod {
	label, ok := contactMethodLabels[method.Type]
	if !ok {
		return ContactMethod{}
	}
	method.Label = label
	return method
}

// LabelContactMethods returns a copy of the user whose contact methods all carry
// display labels. The input is left untouched.
func LabelContactMethods(user User) User {
	if user.ContactMethods == nil {
		return user
	}
	labeled := make([]ContactMethod, 0, len(user.ContactMethods))
	for _, method := range user.ContactMethods {
		labeled = append(labeled, LabelContactMethod(method))
	}
	user.ContactMethods = labeled
	return user
}
