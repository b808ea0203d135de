package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/iudanet/shotsync/internal/client/autosave"
	"github.com/iudanet/shotsync/internal/validation"
)

// ProjectList печатает проекты, свежие первыми
func (c *Cli) ProjectList(ctx context.Context) error {
	projects, err := c.api.ListProjects(ctx)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		c.io.Println("No projects yet. Use 'shotsync project create <title>' to add one.")
		return nil
	}

	current, _ := c.currentProject(ctx)

	w := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, " \tTITLE\tUPDATED\tID")
	for _, p := range projects {
		mark := " "
		if p.ID == current {
			mark = "*"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", mark, p.Title, p.UpdatedAt.Local().Format("2006-01-02 15:04"), p.ID)
	}
	return w.Flush()
}

// ProjectCreate создает проект и делает его текущим
func (c *Cli) ProjectCreate(ctx context.Context, title, description string) error {
	if err := validation.ValidateProject(title, description); err != nil {
		return err
	}

	project, err := c.api.CreateProject(ctx, title, description)
	if err != nil {
		return err
	}
	if err := c.state.SetCurrentProject(ctx, project.ID); err != nil {
		return err
	}

	c.io.Printf("Created project %q (%s)\n", project.Title, project.ID)
	return nil
}

// ProjectUse запоминает текущий проект
func (c *Cli) ProjectUse(ctx context.Context, projectID string) error {
	project, err := c.api.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := c.state.SetCurrentProject(ctx, project.ID); err != nil {
		return err
	}

	c.io.Printf("Using project %q\n", project.Title)
	return nil
}

// ProjectShow печатает текущий проект и его борды
func (c *Cli) ProjectShow(ctx context.Context) error {
	projectID, err := c.currentProject(ctx)
	if err != nil {
		return err
	}
	project, err := c.api.GetProject(ctx, projectID)
	if err != nil {
		return err
	}

	c.io.Printf("%s\n", project.Title)
	if project.Description != "" {
		c.io.Printf("%s\n", project.Description)
	}
	c.io.Println()

	boards, err := c.api.ListBoards(ctx, projectID)
	if err != nil {
		return err
	}
	c.printBoards(boards)
	return nil
}

// ProjectEdit меняет заголовок и описание под блокировкой project_edit
func (c *Cli) ProjectEdit(ctx context.Context, rec autosave.Record) error {
	projectID, err := c.currentProject(ctx)
	if err != nil {
		return err
	}
	project, err := c.api.GetProject(ctx, projectID)
	if err != nil {
		return err
	}

	title, description := project.Title, project.Description
	if v, ok := rec[autosave.FieldTitle]; ok {
		title = v
	}
	if v, ok := rec[autosave.FieldDescription]; ok {
		description = v
	}
	if err := validation.ValidateProject(title, description); err != nil {
		return err
	}

	s, err := c.sessions(nil).OpenProject(ctx, project)
	if err != nil {
		return err
	}
	defer s.Close(context.WithoutCancel(ctx))

	for field, value := range rec {
		if err := s.Set(field, value); err != nil {
			return err
		}
	}
	if err := s.Submit(ctx); err != nil {
		return err
	}

	c.io.Println("Project updated.")
	return nil
}

// ProjectDelete удаляет проект, если в нем никто не работает
func (c *Cli) ProjectDelete(ctx context.Context, projectID string, yes bool) error {
	project, err := c.api.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := c.confirm(yes, fmt.Sprintf("Delete project %q and all its boards?", project.Title)); err != nil {
		return err
	}

	if err := c.api.DeleteProject(ctx, projectID); err != nil {
		return c.deleteError(err)
	}

	if current, err := c.currentProject(ctx); err == nil && current == projectID {
		if err := c.state.SetCurrentProject(ctx, ""); err != nil {
			c.logger.WarnContext(ctx, "Failed to reset current project", "error", err)
		}
	}

	c.io.Printf("Deleted project %q\n", project.Title)
	return nil
}
