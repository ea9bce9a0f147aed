package inference

const extractionPrompt = `You are given an image of a schedule, flyer, or ticket.
Extract every calendar event you can identify and respond with ONLY a JSON array, no prose.
Each element must have this shape:
{"title": string, "date": "YYYY-MM-DD", "start_time": "HH:MM or h:mm AM/PM", "end_time": "HH:MM or h:mm AM/PM", "description": string}
Omit start_time/end_time/description when the image does not show them.
If the image contains no events, respond with [].`
