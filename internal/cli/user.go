package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mealsub/mealsub-cli/internal/models"
	"github.com/mealsub/mealsub-cli/internal/session"
)

func newUserCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Show or update the subscriber",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the subscriber and their subscription",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserShow(cmd, opts)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-allergies <tag,tag,...|none>",
		Short: "Replace the subscriber's allergy tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetAllergies(cmd, opts, args[0])
		},
	})
	return cmd
}

func runUserShow(cmd *cobra.Command, opts *RootOptions) error {
	rt, err := openRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	id, err := rt.userID(opts)
	if err != nil {
		return err
	}
	u, err := rt.client.GetUser(cmd.Context(), id)
	if err != nil {
		return classify("get user", err)
	}
	sess, err := session.FromUser(*u)
	if err != nil {
		return classify("subscription", err)
	}
	return formatter(cmd, opts).Success(u, func(w io.Writer) {
		name := u.Name
		if name == "" {
			name = "(no name)"
		}
		fmt.Fprintf(w, "%s  id %s  %s\n", name, u.ID, u.Phone)
		fmt.Fprintf(w, "  plan       %s, %s cycle (%d week(s))\n", u.Plan, u.SubscriptionCycle, sess.HorizonWeeks)
		fmt.Fprintf(w, "  days       %s\n", strings.Join(sess.SelectedDays, ", "))
		fmt.Fprintf(w, "  meals      %s\n", strings.Join(sess.MealTypes, ", "))
		fmt.Fprintf(w, "  allergies  %s\n", allergyList(u.Allergies))
	})
}

func runSetAllergies(cmd *cobra.Command, opts *RootOptions, arg string) error {
	rt, err := openRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	id, err := rt.userID(opts)
	if err != nil {
		return err
	}
	tags := parseAllergies(arg)
	u, err := rt.client.UpdateUser(cmd.Context(), id, models.UserUpdate{Allergies: tags})
	if err != nil {
		return classify("update user", err)
	}
	rt.log.Info("allergies updated", "user", id, "allergies", tags)
	return formatter(cmd, opts).Success(u, func(w io.Writer) {
		fmt.Fprintf(w, "Allergies set to %s\n", allergyList(u.Allergies))
	})
}

// parseAllergies splits a comma list into lowercase tags. An empty list, or
// one naming "none", is stored as the none sentinel.
func parseAllergies(arg string) []string {
	seen := map[string]bool{}
	var tags []string
	for _, part := range strings.Split(arg, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag == "" || seen[tag] {
			continue
		}
		if tag == models.NoAllergies {
			return []string{models.NoAllergies}
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return []string{models.NoAllergies}
	}
	return tags
}

func allergyList(tags []string) string {
	if len(tags) == 0 {
		return models.NoAllergies
	}
	return strings.Join(tags, ", ")
}
