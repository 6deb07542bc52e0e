package mail

import "fmt"

// SendAccountSetup emails a newly provisioned user the link that lets them
// choose their own password.
func SendAccountSetup(sender Sender, toEmail, username, setupURL string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"An account has been created for you in the Device Management & Tracking System.\n"+
			"Complete your account setup by choosing a password at the link below:\n\n"+
			"%s\n\n"+
			"If you did not expect this email, you can ignore it.\n",
		username, setupURL)

	return sender.Send(&Message{
		To:      []string{toEmail},
		Subject: "Complete Your Account Setup - DMTS",
		Body:    body,
	})
}
